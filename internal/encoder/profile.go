package encoder

// Profile is a named bundle of target resolution and bitrate applied during
// transcoding. Codec choice is fixed: H.264 video, AAC audio, fragmented MP4.
type Profile struct {
	Name       string
	Resolution string // WxH, e.g. "1280x720"
	Bitrate    string // ffmpeg bitrate string, e.g. "1500k"
}

var profiles = map[string]Profile{
	"low":    {Name: "low", Resolution: "640x480", Bitrate: "500k"},
	"medium": {Name: "medium", Resolution: "1280x720", Bitrate: "1500k"},
	"high":   {Name: "high", Resolution: "1920x1080", Bitrate: "3000k"},
}

// ProfileFor resolves a quality name to its transcoding profile.
func ProfileFor(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// ProfileNames returns the configured preset names.
func ProfileNames() []string {
	return []string{"low", "medium", "high"}
}
