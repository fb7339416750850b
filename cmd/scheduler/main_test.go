package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sek-scheduler/internal/domain"
)

func TestParseWeightsParsesCommaSeparatedPairs(t *testing.T) {
	got := parseWeights("gaps=8,workload=1.5, day_wishes = 3 ")
	assert.Equal(t, map[string]float64{"gaps": 8, "workload": 1.5, "day_wishes": 3}, got)
}

func TestParseWeightsIgnoresMalformedPairs(t *testing.T) {
	got := parseWeights("gaps=8,nope,compact=abc,workload=2")
	assert.Equal(t, map[string]float64{"gaps": 8, "workload": 2}, got)
}

func TestParseWeightsEmptyStringReturnsEmptyMap(t *testing.T) {
	got := parseWeights("")
	assert.Empty(t, got)
}

func TestParseWeightsRejectsNegativeValues(t *testing.T) {
	got := parseWeights("gaps=-2,workload=3")
	assert.Equal(t, map[string]float64{"workload": 3}, got)
}

func TestApplyWeightOverridesSetsOnlyProvidedKeys(t *testing.T) {
	dm := &domain.DomainModel{Weights: domain.DefaultWeights()}
	original := dm.Weights

	applyWeightOverrides(dm, map[string]float64{"gaps": 9, "deputat_dev": 2})

	assert.Equal(t, 9.0, dm.Weights.Gaps)
	assert.Equal(t, 2.0, dm.Weights.DeputatDev)
	assert.Equal(t, original.Workload, dm.Weights.Workload)
	assert.Equal(t, original.Compact, dm.Weights.Compact)
}

func TestPickDurationPrefersFlagWhenPositive(t *testing.T) {
	assert.Equal(t, 90*time.Second, pickDuration(90*time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, pickDuration(0, 30*time.Second))
}

func TestPickTwoPassForcePrefersFlagWhenSet(t *testing.T) {
	assert.Equal(t, "on", pickTwoPassForce("on", "off"))
	assert.Equal(t, "off", pickTwoPassForce("", "off"))
}
