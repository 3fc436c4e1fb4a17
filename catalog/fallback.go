package catalog

// fallbackEntry is a hand-maintained channel used when the source list is
// unusable. Stream URLs point at public HLS test streams.
type fallbackEntry struct {
	name        string
	category    CategoryID
	streamURL   string
	quality     Quality
	description string
}

var sportsFallback = []fallbackEntry{
	{
		name:        "Spor Test Yayını",
		category:    CategorySports,
		streamURL:   "https://test-streams.mux.dev/x36xhzz/x36xhzz.m3u8",
		quality:     QualityFHD,
		description: "Kaynak liste alınamadığında gösterilen test yayını",
	},
	{
		name:        "Spor Test Yayını 2",
		category:    CategorySports,
		streamURL:   "https://test-streams.mux.dev/test_001/stream.m3u8",
		quality:     QualityHD,
		description: "Kaynak liste alınamadığında gösterilen test yayını",
	},
}

var generalFallback = []fallbackEntry{
	{
		name:        "Test Yayını",
		category:    CategoryGeneral,
		streamURL:   "https://test-streams.mux.dev/x36xhzz/x36xhzz.m3u8",
		quality:     QualityFHD,
		description: "Kaynak liste alınamadığında gösterilen test yayını",
	},
	{
		name:        "Belgesel Test Yayını",
		category:    CategoryDocumentary,
		streamURL:   "https://test-streams.mux.dev/test_001/stream.m3u8",
		quality:     QualityHD,
		description: "Kaynak liste alınamadığında gösterilen test yayını",
	},
	{
		name:        "Çocuk Test Yayını",
		category:    CategoryKids,
		streamURL:   "https://devstreaming-cdn.apple.com/videos/streaming/examples/img_bipbop_adv_example_fmp4/master.m3u8",
		quality:     QualityHD,
		description: "Kaynak liste alınamadığında gösterilen test yayını",
	},
}

// Fallback returns the non-empty fallback channel list for a profile
func Fallback(profile Profile) []Channel {
	entries := generalFallback
	if len(profile.Keywords) > 0 {
		entries = sportsFallback
	}
	lower := newClassifier(profile.Language).lower

	channels := make([]Channel, 0, len(entries))
	for i, e := range entries {
		channels = append(channels, Channel{
			ID:          i + 1,
			Name:        e.name,
			Category:    CategoryLabel(e.category, profile.Language),
			StreamURL:   e.streamURL,
			Quality:     e.quality,
			Language:    profile.Language,
			Status:      StatusLive,
			Viewers:     syntheticViewers(e.category, e.name, e.streamURL),
			Description: e.description,
			SortKey:     sortKey(e.name, lower),
		})
	}
	return channels
}
