// Package pysnaptest provides snapshot testing: capture the output of a
// computation once, persist it next to the test source, and compare every
// later run against the persisted reference.
//
// Quick Start:
//
//	func TestReport(t *testing.T) {
//	    report := BuildReport()
//	    pysnaptest.AssertJSONSnapshot(t, report,
//	        pysnaptest.WithRedactions(pysnaptest.Redactions{
//	            "generated_at": pysnaptest.Replace("[timestamp]"),
//	        }))
//	}
//
// The first run records snapshots/report_test_TestReport.json; subsequent runs
// fail on any divergence. Set SNAPTEST_UPDATE=always to re-record.
//
// MockJSON wraps a dependency so its results are recorded once and replayed on
// later runs without invoking it. See example_test.go and README.md for
// detailed usage.
package pysnaptest
