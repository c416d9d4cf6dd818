package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

func TestBuildOptionsPrimaryAppendsBestAudio(t *testing.T) {
	t.Parallel()

	meta := domain.Metadata{VideoQualities: []domain.VideoQuality{
		{Label: "1080p", Height: 1080},
		{Label: "720p", Height: 720},
	}}
	got := BuildOptions(meta, domain.PlatformPrimary)

	assert.Equal(t, []domain.QualityOption{
		{Label: "1080p", Kind: domain.QualityVideo, Value: domain.QualityN(1080)},
		{Label: "720p", Kind: domain.QualityVideo, Value: domain.QualityN(720)},
		{Label: BestAudioLabel, Kind: domain.QualityAudio, Value: domain.BestQuality},
	}, got)
}

func TestBuildOptionsAudioPlatformHasNoSyntheticEntry(t *testing.T) {
	t.Parallel()

	meta := domain.Metadata{
		VideoQualities: []domain.VideoQuality{{Label: "1080p", Height: 1080}},
		AudioQualities: []domain.AudioQuality{{Label: "160kbps", Bitrate: 160}, {Label: "", Bitrate: 128}},
	}
	got := BuildOptions(meta, domain.PlatformAudio)

	require.Len(t, got, 2)
	for _, o := range got {
		assert.Equal(t, domain.QualityAudio, o.Kind)
		assert.False(t, o.Value.Best)
	}
	assert.Equal(t, "128kbps", got[1].Label)
}

func TestBuildOptionsSyntheticCount(t *testing.T) {
	t.Parallel()

	for n := 0; n < 5; n++ {
		var meta domain.Metadata
		for i := 0; i < n; i++ {
			meta.VideoQualities = append(meta.VideoQualities, domain.VideoQuality{Height: 1000 - i*100})
			meta.AudioQualities = append(meta.AudioQualities, domain.AudioQuality{Bitrate: 300 - i*10})
		}
		primary := BuildOptions(meta, domain.PlatformPrimary)
		audio := BuildOptions(meta, domain.PlatformAudio)
		assert.Equal(t, 1, countBest(primary), "n=%d", n)
		assert.Equal(t, n+1, len(primary))
		assert.Equal(t, domain.QualityAudio, primary[len(primary)-1].Kind)
		assert.Equal(t, 0, countBest(audio), "n=%d", n)
	}
}

func TestBuildOptionsCollectionIsEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, BuildOptions(domain.Metadata{IsCollection: true}, domain.PlatformPrimary))
}

func countBest(opts []domain.QualityOption) int {
	n := 0
	for _, o := range opts {
		if o.Value.Best {
			n++
		}
	}
	return n
}

func TestSelectorSingleSelection(t *testing.T) {
	t.Parallel()

	s := NewSelector(nil)
	_, ok := s.Selected()
	assert.False(t, ok, "nothing selected before the list is built")
	assert.Equal(t, -1, s.Index())

	opts := BuildOptions(domain.Metadata{VideoQualities: []domain.VideoQuality{{Label: "1080p", Height: 1080}, {Label: "720p", Height: 720}}}, domain.PlatformPrimary)
	s.Load(opts)
	first, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "1080p", first.Label)

	for _, i := range []int{2, 0, 1, 1} {
		require.True(t, s.Select(i))
		got, _ := s.Selected()
		assert.Equal(t, opts[i], got)
		assert.Equal(t, i, s.Index())
	}

	assert.False(t, s.Select(7))
	assert.Equal(t, 1, s.Index(), "out of range keeps the selection")

	s.Reset()
	assert.Equal(t, -1, s.Index())
}
