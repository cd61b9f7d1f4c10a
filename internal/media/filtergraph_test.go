package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphSerialize(t *testing.T) {
	g := NewGraph()
	g.AddXFade(InputVideo(0), InputVideo(1), "vx1", "fade", 1.0, 7.0)
	g.AddACrossfade(InputAudio(0), InputAudio(1), "ax1", 1.0)

	expr := g.Serialize()
	assert.Equal(t,
		"[0:v][1:v]xfade=transition=fade:duration=1.000:offset=7.000[vx1];[0:a][1:a]acrossfade=d=1.000[ax1]",
		expr)
	assert.Equal(t, "[vx1]", g.VideoOut().Ref())
	assert.Equal(t, "[ax1]", g.AudioOut().Ref())
}

func TestGraphSerializeConcat(t *testing.T) {
	g := NewGraph()
	g.AddConcat([]Pad{"0:v", "0:a", "1:v", "1:a"}, "outv", "outa", 2)

	assert.Equal(t, "[0:v][0:a][1:v][1:a]concat=n=2:v=1:a=1[outv][outa]", g.Serialize())
}

func TestBuildCrossfadeGraphOffsets(t *testing.T) {
	// Three segments of 8, 6, 7 seconds with a 1s transition. The first
	// xfade starts at 8-1=7s; the second at 7+6-1=12s.
	g, err := BuildCrossfadeGraph([]float64{8, 6, 7}, 1.0)
	require.NoError(t, err)

	expr := g.Serialize()
	assert.Contains(t, expr, "[0:v][1:v]xfade=transition=fade:duration=1.000:offset=7.000[vx1]")
	assert.Contains(t, expr, "[vx1][2:v]xfade=transition=fade:duration=1.000:offset=12.000[vx2]")
	assert.Contains(t, expr, "[0:a][1:a]acrossfade=d=1.000[ax1]")
	assert.Contains(t, expr, "[ax1][2:a]acrossfade=d=1.000[ax2]")
	assert.Equal(t, "[vx2]", g.VideoOut().Ref())
	assert.Equal(t, "[ax2]", g.AudioOut().Ref())
}

func TestBuildCrossfadeGraphRejectsSingleSegment(t *testing.T) {
	_, err := BuildCrossfadeGraph([]float64{10}, 1.0)
	assert.Error(t, err)
}

func TestBuildCrossfadeGraphRejectsLongTransition(t *testing.T) {
	// Transition must be strictly shorter than every segment
	_, err := BuildCrossfadeGraph([]float64{8, 0.5, 7}, 1.0)
	assert.Error(t, err)
}

func TestCrossfadeDuration(t *testing.T) {
	// Overlapping transitions shorten the total: 21 - 2*1 = 19
	assert.InDelta(t, 19.0, CrossfadeDuration([]float64{8, 6, 7}, 1.0), 0.001)
	assert.InDelta(t, 10.0, CrossfadeDuration([]float64{10}, 1.0), 0.001)
}
