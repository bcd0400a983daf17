package reltag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSemVerString(t *testing.T) {
	require.Equal(t, "v1.2.3", SemVer{Major: 1, Minor: 2, Patch: 3}.String())
	require.Equal(t, "v1.2.3-rc.7", SemVer{Major: 1, Minor: 2, Patch: 3, Pre: 7}.String())
	require.Equal(t, "v0.0.0", SemVer{}.String())
}

func TestSemVerBase(t *testing.T) {
	v := SemVer{Major: 1, Minor: 1, Patch: 0, Pre: 3}
	require.Equal(t, SemVer{Major: 1, Minor: 1}, v.Base())
	require.Equal(t, uint64(3), v.Pre, "Base must not mutate the receiver")
}

func TestParseBump(t *testing.T) {
	tests := []struct {
		input    string
		expected Bump
		wantErr  bool
	}{
		{"major", BumpMajor, false},
		{"minor", BumpMinor, false},
		{"patch", BumpPatch, false},
		{"", BumpMinor, false},
		{"Major", "", true},
		{"none", "", true},
		{"banana", "", true},
	}

	for _, test := range tests {
		bump, err := ParseBump(test.input)
		if test.wantErr {
			require.Error(t, err, "input: %q", test.input)
			continue
		}
		require.NoError(t, err, "input: %q", test.input)
		require.Equal(t, test.expected, bump)
	}
}

func TestVersionDecisionJSON(t *testing.T) {
	decision, err := NextPreRelease("v1.0.0")
	require.NoError(t, err)

	encoded, err := json.Marshal(decision)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"current_tag": "v1.0.0",
		"new_version": "v1.1.0-rc.1",
		"base_version": "v1.1.0"
	}`, string(encoded))

	var decoded VersionDecision
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, *decision, decoded)
}

func TestVersionDecisionJSONIncludesBump(t *testing.T) {
	decision, err := NextStable("v1.2.3", BumpPatch)
	require.NoError(t, err)

	encoded, err := json.Marshal(decision)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"current_tag": "v1.2.3",
		"new_version": "v1.2.4",
		"base_version": "v1.2.4",
		"bump": "patch"
	}`, string(encoded))
}

func TestSemVerUnmarshalRejectsMalformed(t *testing.T) {
	var v SemVer
	err := json.Unmarshal([]byte(`"not-a-tag"`), &v)
	require.Error(t, err)

	var malformed *MalformedVersionError
	require.ErrorAs(t, err, &malformed)
}
