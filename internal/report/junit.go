package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Skipped  int          `xml:"skipped,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string      `xml:"name,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Errors    int         `xml:"errors,attr"`
	Skipped   int         `xml:"skipped,attr"`
	Time      string      `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Error     *junitFailure `xml:"error,omitempty"`
	Skipped   *struct{}     `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnit renders r as a JUnit XML document. Assertion and timeout failures
// become <failure>, anything else <error>.
func JUnit(r *Report) ([]byte, error) {
	suite := junitSuite{
		Name:      r.AppName,
		Tests:     r.Total,
		Skipped:   r.Skipped,
		Time:      seconds(r.Duration.Seconds()),
		Timestamp: r.StartedAt.UTC().Format("2006-01-02T15:04:05"),
	}
	for _, res := range r.Results {
		c := junitCase{
			Name:      res.Name,
			Classname: "uiflow." + r.Profile,
			Time:      seconds(res.Duration.Seconds()),
		}
		if len(res.Notes) > 0 {
			c.SystemOut = strings.Join(res.Notes, "\n")
		}
		switch res.Status {
		case StatusSkipped:
			c.Skipped = &struct{}{}
		case StatusFailed:
			f := &junitFailure{Message: res.Message, Type: string(res.Kind), Body: res.Message}
			if res.Screenshot != "" {
				f.Body += "\nscreenshot: " + res.Screenshot
			}
			if res.Kind == KindError {
				c.Error = f
				suite.Errors++
			} else {
				c.Failure = f
				suite.Failures++
			}
		}
		suite.Cases = append(suite.Cases, c)
	}

	doc := junitSuites{
		Name:     "uiflow",
		Tests:    suite.Tests,
		Failures: suite.Failures + suite.Errors,
		Skipped:  suite.Skipped,
		Time:     suite.Time,
		Suites:   []junitSuite{suite},
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// WriteJUnit saves the JUnit rendering of r
func WriteJUnit(path string, r *Report) error {
	data, err := JUnit(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func seconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
