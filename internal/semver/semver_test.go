// SPDX-License-Identifier: Apache-2.0

package semver_test

import (
	"encoding/json"
	"testing"

	"github.com/psqlpack/psqlpack/internal/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionStrings(t *testing.T) {
	tests := []struct {
		Given    string
		Expected string
	}{
		{"11", "11.0"},
		{"10.4", "10.4"},
		{"9.4.18", "9.4.18"},
		{"9.6.9", "9.6.9"},
	}

	for _, tt := range tests {
		t.Run(tt.Given, func(t *testing.T) {
			v, err := semver.Parse(tt.Given)
			require.NoError(t, err)
			assert.Equal(t, tt.Expected, v.String())
		})
	}
}

func TestCompareOrdersByMajorThenMinorThenRevision(t *testing.T) {
	assert.True(t, semver.MustParse("9.6.9").Less(semver.MustParse("10.4")))
	assert.True(t, semver.MustParse("10.3").Less(semver.MustParse("10.4")))
	assert.True(t, semver.MustParse("10.4.1").Less(semver.MustParse("10.4.2")))
	assert.False(t, semver.MustParse("10.4").Less(semver.MustParse("10.4")))
}

func TestJSONRoundTrip(t *testing.T) {
	v := semver.MustParse("9.4.18")
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `"9.4.18"`, string(data))

	var out semver.Semver
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, v, out)
}
