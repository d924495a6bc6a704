package vetcore

import "time"

func parseDateForTest(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func mustParseVersion(t interface {
	Fatalf(string, ...interface{})
}, s string) VetVersion {
	v, err := ParseVetVersion(s)
	if err != nil {
		t.Fatalf("parsing version %q: %v", s, err)
	}
	return v
}
