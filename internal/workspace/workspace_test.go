package workspace

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/yws/internal/platform"
	"github.com/1broseidon/yws/internal/platform/platformtest"
)

func sampleWorkspace() *Workspace {
	d1 := platformtest.Display(1)
	d1.Spaces = []int{1, 2}
	d2 := platformtest.Display(2)
	d2.Spaces = []int{3}

	chrome := platformtest.Window(41, "Google Chrome", 1, 2)
	chrome.Layer = "normal"
	chrome.HandlerData = map[string]any{
		"chrome": map[string]any{
			"tabs": []any{
				map[string]any{"title": "Go", "url": "https://go.dev"},
				map[string]any{"title": "pkg", "url": "https://pkg.go.dev"},
			},
		},
		"counter": 3.0,
	}

	return &Workspace{
		Meta:     &Meta{Name: "desk", Description: "two monitors"},
		Displays: []platform.Display{d1, d2},
		Spaces: []platform.Space{
			platformtest.Space(11, 1, 1, 40),
			platformtest.Space(12, 2, 1, 41),
			platformtest.Space(21, 3, 2),
		},
		Windows: []platform.Window{
			platformtest.Window(40, "Terminal", 1, 1),
			chrome,
		},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	ws := sampleWorkspace()

	data, err := Encode(ws)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ws, got)
}

func TestEncode_IsDeterministicAndSorted(t *testing.T) {
	ws := sampleWorkspace()
	first, err := Encode(ws)
	require.NoError(t, err)

	shuffled := sampleWorkspace()
	shuffled.Spaces[0], shuffled.Spaces[2] = shuffled.Spaces[2], shuffled.Spaces[0]
	shuffled.Windows[0], shuffled.Windows[1] = shuffled.Windows[1], shuffled.Windows[0]
	second, err := Encode(shuffled)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))

	order := []string{"\n  \"displays\":", "\n  \"meta\":", "\n  \"spaces\":", "\n  \"windows\":"}
	last := -1
	for _, key := range order {
		i := bytes.Index(first, []byte(key))
		require.GreaterOrEqual(t, i, 0, key)
		assert.Greater(t, i, last, "%s out of order", key)
		last = i
	}
	windows := first[bytes.Index(first, []byte("\n  \"windows\":")):]
	assert.Less(t, bytes.Index(windows, []byte(`"can-move"`)), bytes.Index(windows, []byte(`"frame"`)))
}

func TestDecode_KeyOrderIndependent(t *testing.T) {
	data, err := Encode(sampleWorkspace())
	require.NoError(t, err)

	var generic map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &generic))
	reordered := []byte(`{"windows":` + string(generic["windows"]) +
		`,"spaces":` + string(generic["spaces"]) +
		`,"meta":` + string(generic["meta"]) +
		`,"displays":` + string(generic["displays"]) + `}`)

	got, err := Decode(reordered)
	require.NoError(t, err)
	assert.Equal(t, sampleWorkspace(), got)
}

func TestEncode_DoesNotMutateInput(t *testing.T) {
	ws := sampleWorkspace()
	ws.Windows[0], ws.Windows[1] = ws.Windows[1], ws.Windows[0]
	_, err := Encode(ws)
	require.NoError(t, err)
	assert.Equal(t, 41, ws.Windows[0].ID)
}

func TestDecode_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":       `[`,
		"empty name":     `{"meta":{"name":""},"displays":[],"spaces":[],"windows":[]}`,
		"missing fields": `{"displays":[{"id":1}],"spaces":[],"windows":[]}`,
		"bad opacity":    `{"displays":[],"spaces":[],"windows":[{"opacity":2}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestDecode_NoMeta(t *testing.T) {
	ws, err := Decode([]byte(`{"displays":[],"spaces":[],"windows":[]}`))
	require.NoError(t, err)
	assert.Nil(t, ws.Meta)
	assert.Empty(t, ws.Windows)
}
