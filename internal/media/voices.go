package media

// DefaultVoiceVariants is used when no variants are configured.
var DefaultVoiceVariants = []string{"Puck", "Kore", "Charon", "Aoede", "Fenrir"}

// VoiceFor returns the voice variant for the dialogue line at lineIndex.
// Successive lines get distinct voices without any per-character assignment.
func VoiceFor(lineIndex int, variants []string) string {
	if len(variants) == 0 {
		variants = DefaultVoiceVariants
	}
	return variants[lineIndex%len(variants)]
}
