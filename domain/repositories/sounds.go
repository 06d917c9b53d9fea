package repositories

// ResponseMode selects which sound categories a deterrent response draws from.
type ResponseMode string

const (
	ResponseModePredators  ResponseMode = "predators"
	ResponseModeWoodpecker ResponseMode = "woodpecker"
	ResponseModeMixed      ResponseMode = "mixed"
	ResponseModeSilent     ResponseMode = "silent"
)

// SoundLibrary exposes the deterrent sound collection. The server only
// lists and serves sounds; playback happens on the client.
type SoundLibrary interface {
	// Categories returns the available category names mapped to their files.
	Categories() map[string][]string
	// Resolve returns the filesystem path for a category/file pair, or an
	// error if the pair does not exist.
	Resolve(category, filename string) (string, error)
	// Pick selects one random sound for the given response mode. Returns
	// ok=false when the mode is silent or no matching category has files.
	Pick(mode ResponseMode) (category, filename string, ok bool)
}
