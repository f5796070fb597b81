package cmdrrrmake

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestParseExperimentsDefaultsToFalse(t *testing.T) {
	exp, err := parseExperiments("")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(exp.ForceRebuild))
}

func TestParseExperimentsBareNameMeansTrue(t *testing.T) {
	exp, err := parseExperiments("forcerebuild")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(exp.ForceRebuild))
}

func TestParseExperimentsExplicitValueAndCase(t *testing.T) {
	exp, err := parseExperiments("ForceRebuild=0")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(exp.ForceRebuild))
}

func TestParseExperimentsRejectsUnknownName(t *testing.T) {
	_, err := parseExperiments("notarealflag")
	qt.Assert(t, qt.IsNotNil(err))
}

func TestParseExperimentsRejectsBadBool(t *testing.T) {
	_, err := parseExperiments("forcerebuild=maybe")
	qt.Assert(t, qt.IsNotNil(err))
}
