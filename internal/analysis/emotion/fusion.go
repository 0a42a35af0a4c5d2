package emotion

// IsNegative reports whether l belongs to the negative-affect set {sad, angry, fear}.
func IsNegative(l Label) bool {
	switch l {
	case Sad, Angry, Fear:
		return true
	default:
		return false
	}
}

// Fuse combines the latest vision label (empty when no camera signal exists)
// with the classified text label into the final label.
//
// Negative affect from either modality wins, vision first. Otherwise the
// explicit text channel wins, then vision, then Neutral.
func Fuse(vision, text Label) Label {
	if IsNegative(vision) {
		return vision
	}
	if IsNegative(text) {
		return text
	}
	if text != "" {
		return text
	}
	if vision != "" {
		return vision
	}
	return Neutral
}
