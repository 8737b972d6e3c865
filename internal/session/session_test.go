package session

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LanguageMachines/timblserver/internal/classifier"
)

func testBase(t *testing.T) *classifier.Base {
	b, err := classifier.NewBase("news", classifier.IB1, classifier.GR,
		[]classifier.Instance{{Features: []string{"a", "b"}, Class: "yes"}}, nil)
	require.NoError(t, err)
	return b
}

func TestNew_AssignsTraceAndSessionID(t *testing.T) {
	var buf bytes.Buffer
	s := New(3, &buf, false, nil, zerolog.Nop())
	assert.Equal(t, uint64(3), s.ID)
	assert.NotEqual(t, [16]byte{}, [16]byte(s.Trace))
}

func TestSession_Bind_NamesExperimentBySessionID(t *testing.T) {
	var buf bytes.Buffer
	s := New(7, &buf, false, nil, zerolog.Nop())
	s.Bind(testBase(t))
	require.NotNil(t, s.Bound())
	assert.Equal(t, "exp-7", s.Bound().Name())
}

func TestSession_Bind_ReplacesPreviousExperiment(t *testing.T) {
	var buf bytes.Buffer
	s := New(1, &buf, false, nil, zerolog.Nop())
	s.Bind(testBase(t))
	first := s.Bound()

	other := testBase(t)
	s.Bind(other)
	assert.NotSame(t, first, s.Bound())
}

func TestSession_Close_ClearsBoundExperiment(t *testing.T) {
	var buf bytes.Buffer
	s := New(1, &buf, false, nil, zerolog.Nop())
	s.Bind(testBase(t))
	s.Close()
	assert.Nil(t, s.Bound())
}
