package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.yaml.in/yaml/v3"
)

func TestParseScale(t *testing.T) {
	Convey("Given scale mapping strings", t, func() {
		Convey("When the input is well formed", func() {
			scale, err := ParseScale("a:1.5,b:2.0")

			Convey("Then every pair is parsed", func() {
				So(err, ShouldBeNil)
				So(scale, ShouldResemble, map[string]float64{"a": 1.5, "b": 2.0})
			})
		})

		Convey("When entries carry whitespace and regex syntax", func() {
			scale, err := ParseScale(" ^alice.*@school\\.edu$ : 0.5 , (?i)BOB:3 ")
			So(err, ShouldBeNil)
			So(scale, ShouldResemble, map[string]float64{`^alice.*@school\.edu$`: 0.5, "(?i)BOB": 3})
		})

		Convey("When a pattern itself contains a colon", func() {
			scale, err := ParseScale("a:b:2")
			So(err, ShouldBeNil)
			So(scale, ShouldResemble, map[string]float64{"a:b": 2})
		})

		Convey("When patterns use lookaround syntax Go cannot compile", func() {
			scale, err := ParseScale("^(?!lead).*:2.0,(?<=TA_)bob:1.5")

			Convey("Then they are kept verbatim for the engine", func() {
				So(err, ShouldBeNil)
				So(scale, ShouldResemble, map[string]float64{"^(?!lead).*": 2.0, "(?<=TA_)bob": 1.5})
			})
		})

		Convey("When the input is empty", func() {
			scale, err := ParseScale("  ")
			So(err, ShouldBeNil)
			So(scale, ShouldBeEmpty)
		})

		Convey("When entries are malformed", func() {
			for _, in := range []string{"a", "a:1.5,b", "a:x", ":2", "a:1,", "a:NaN"} {
				_, err := ParseScale(in)
				So(errors.Is(err, ErrInvalidScale), ShouldBeTrue)
			}
		})
	})
}

func TestFromForm(t *testing.T) {
	Convey("Given web form fields", t, func() {
		Convey("When every field is blank", func() {
			cfg, err := FromForm(FormFields{})

			Convey("Then the defaults apply", func() {
				So(err, ShouldBeNil)
				So(cfg, ShouldResemble, Default())
			})
		})

		Convey("When fields are filled in", func() {
			cfg, err := FromForm(FormFields{
				OHPerTA:    "2",
				MaxTAPerOH: " 4 ",
				DateStart:  "Jan 6 2025",
				DateEnd:    "May 1 2025",
				ScaleDict:  "lead:2.0",
				TZ:         "America/Chicago",
			})

			Convey("Then they override the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.OHPerTA, ShouldEqual, 2)
				So(cfg.MaxTAPerOH, ShouldEqual, 4)
				So(cfg.DateStart, ShouldEqual, "Jan 6 2025")
				So(cfg.DateEnd, ShouldEqual, "May 1 2025")
				So(cfg.ScaleDict, ShouldResemble, map[string]float64{"lead": 2.0})
				So(cfg.TZ, ShouldEqual, "America/Chicago")
			})
		})

		Convey("When a number is malformed", func() {
			_, err := FromForm(FormFields{OHPerTA: "two"})
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the scale mapping is malformed", func() {
			_, err := FromForm(FormFields{ScaleDict: "lead=2"})
			So(errors.Is(err, ErrInvalidScale), ShouldBeTrue)
		})

		Convey("When values fail validation", func() {
			_, err := FromForm(FormFields{MaxTAPerOH: "0"})
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)

			_, err = FromForm(FormFields{TZ: "Mars/Olympus"})
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestFromYAML(t *testing.T) {
	Convey("Given YAML config files", t, func() {
		dir := t.TempDir()

		Convey("When the document is valid", func() {
			path := write(t, dir, `
oh_per_ta: 2
max_ta_per_oh: 5
date_start: Jan 6 2025
scale_dict:
  ".*@grad\\.school\\.edu": 1.5
  lead: 2
tz: US/Pacific
`)
			cfg, err := FromYAML(path)

			Convey("Then it is merged over the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.OHPerTA, ShouldEqual, 2)
				So(cfg.MaxTAPerOH, ShouldEqual, 5)
				So(cfg.DateStart, ShouldEqual, "Jan 6 2025")
				So(cfg.DateEnd, ShouldEqual, "")
				So(cfg.TZ, ShouldEqual, "US/Pacific")
				So(cfg.FOut, ShouldEqual, CalendarFile)
				So(cfg.ScaleDict, ShouldResemble, map[string]float64{`.*@grad\.school\.edu`: 1.5, "lead": 2})
			})
		})

		Convey("When dates are unquoted", func() {
			cfg, err := FromYAML(write(t, dir, "date_start: 2025-01-06\ndate_end: 2025-05-01\n"))
			So(err, ShouldBeNil)
			So(cfg.DateStart, ShouldEqual, "2025-01-06")
			So(cfg.DateEnd, ShouldEqual, "2025-05-01")
		})

		Convey("When a date carries a time of day", func() {
			cfg, err := FromYAML(write(t, dir, "date_start: 2025-01-06T09:30:00Z\n"))
			So(err, ShouldBeNil)
			So(cfg.DateStart, ShouldEqual, "2025-01-06T09:30:00Z")
		})

		Convey("When the document is empty", func() {
			cfg, err := FromYAML(write(t, dir, ""))
			So(err, ShouldBeNil)
			So(cfg, ShouldResemble, Default())
		})

		Convey("When the document is not YAML", func() {
			_, err := FromYAML(write(t, dir, "oh_per_ta: [1, 2"))
			So(errors.Is(err, ErrParseYAML), ShouldBeTrue)
		})

		Convey("When the document has unknown keys", func() {
			_, err := FromYAML(write(t, dir, "oh_per_tas: 2\n"))
			So(errors.Is(err, ErrParseYAML), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "oh_per_tas")
		})

		Convey("When a value has the wrong type", func() {
			_, err := FromYAML(write(t, dir, "oh_per_ta: lots\n"))
			So(errors.Is(err, ErrParseYAML), ShouldBeTrue)
		})

		Convey("When a scale pattern uses lookahead syntax", func() {
			cfg, err := FromYAML(write(t, dir, "scale_dict:\n  \"^(?!lead).*\": 2\n"))
			So(err, ShouldBeNil)
			So(cfg.ScaleDict, ShouldResemble, map[string]float64{"^(?!lead).*": 2})
		})

		Convey("When a scale pattern is blank", func() {
			_, err := FromYAML(write(t, dir, "scale_dict:\n  \" \": 2\n"))
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the file does not exist", func() {
			_, err := FromYAML(filepath.Join(dir, "missing.yaml"))
			So(errors.Is(err, ErrParseYAML), ShouldBeTrue)
		})
	})
}

func TestConfigEcho(t *testing.T) {
	Convey("Given a config", t, func() {
		cfg := Default()
		cfg.ScaleDict = map[string]float64{"b": 2, "a": 1.5}

		Convey("When the output path is replaced", func() {
			out := cfg.WithOutput("/tmp/run/office_hours.ics")
			out.ScaleDict["c"] = 9

			Convey("Then the original is untouched", func() {
				So(cfg.FOut, ShouldEqual, CalendarFile)
				So(cfg.ScaleDict, ShouldNotContainKey, "c")
			})
		})

		Convey("When it is marshalled", func() {
			b, err := cfg.Marshal()
			So(err, ShouldBeNil)

			Convey("Then it round-trips through YAML", func() {
				var back Config
				So(yaml.Unmarshal(b, &back), ShouldBeNil)
				So(back, ShouldResemble, cfg)
				So(string(b), ShouldNotContainSubstring, "date_start")
			})
		})

		Convey("When the scale mapping is rendered for the form", func() {
			So(MarshalScale(cfg.ScaleDict), ShouldEqual, "a:1.5,b:2")
		})
	})
}

func write(t *testing.T, dir, content string) string {
	t.Helper()
	f, err := os.CreateTemp(dir, "cfg-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}
