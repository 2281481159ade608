package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchTopic(t *testing.T) {
	testCases := []struct {
		topic   string
		pattern string
		match   bool
	}{
		{"slice/5/tm", "slice/5/tm", true},
		{"slice/5/tm", "slice/+/tm", true},
		{"slice/5/tm", "slice/#", true},
		{"slice/5/tm", "#", true},
		{"slice/5/tm", "slice/5/cmd", false},
		{"slice/5/tm", "slice/5", false},
		{"slice/5", "slice/5/tm", false},
		{"slice/5/tm", "+/+/+", true},
	}
	for _, tc := range testCases {
		require.Equalf(t, tc.match, MatchTopic(tc.topic, tc.pattern), "%q vs %q", tc.topic, tc.pattern)
	}
}

func TestClientOptionsFromURL(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("mqtt://user:pw@broker:1883/crumbs/?client-id=bridge-1")
	require.NoError(t, err)
	require.Equal(t, "crumbs/", prefix)
	require.Equal(t, "tcp://broker:1883", opts.Servers[0].String())
	require.Equal(t, "user", opts.Username)
	require.Equal(t, "pw", opts.Password)
	require.Equal(t, "bridge-1", opts.ClientID)
}
