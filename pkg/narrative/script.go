package narrative

// Scripted lines that frame the conversation. They never go through the generator.
const (
	// QuitLine closes an interactive session.
	QuitLine = "Steve just nods quietly, lost in his own thoughts."

	// ResetNotice narrates a reset.
	ResetNotice = "(You reset the conversation back to the beginning.)"

	// ReopenLine is what Steve says right after a reset.
	ReopenLine = "...you know I have this assignment coming up... but... I don't know, what am I even like?"
)

// OpeningScene sets the scene before the first turn, as markdown. %[1]s is the user's name.
const OpeningScene = `*(You're sitting in silence with your friend, Steve. He's been quiet for a while, just lying on his bed and staring at the ceiling. He lets out a heavy sigh.)*

**Steve:** ... (sigh)

**%[1]s:** What's wrong?

**Steve:** Ah... nothing. I'm just... stuck on something.

**%[1]s:** Well then... what is it?

**Steve:** A project, for school. It's just... nothing...

**%[1]s:** Come on, you can tell me.

**Steve:** Well... *(he sits up)* ...you know I have this assignment coming up, asking me to make some kind of art piece about myself, but... I don't know, what am I even like?
`
