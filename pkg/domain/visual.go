package domain

// VisualState is the coarse mood indicator consumed by presentation layers.
type VisualState string

const (
	VisualDim         VisualState = "dim"
	VisualConsidering VisualState = "considering"
	VisualBright      VisualState = "bright"
	VisualDark        VisualState = "dark"
)

// VisualFor maps a narrative state to its visual state.
// Unknown states map to VisualDim.
func VisualFor(s NarrativeState) VisualState {
	switch s {
	case StateConsidering:
		return VisualConsidering
	case StateElaboratingHope:
		return VisualBright
	case StateTheCollapse:
		return VisualDark
	default:
		return VisualDim
	}
}
