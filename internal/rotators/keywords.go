package rotators

// Keyword lists are data, not logic: classification is a heuristic over
// human-readable milestone names, so renames upstream only require edits
// here. Matched case-insensitively as substrings of the milestone name.

var raidKeywords = []string{
	"last wish",
	"garden of salvation",
	"deep stone crypt",
	"vault of glass",
	"vow of the disciple",
	"king's fall",
	"root of nightmares",
	"crota's end",
	"salvation's edge",
}

var dungeonKeywords = []string{
	"shattered throne",
	"pit of heresy",
	"prophecy",
	"grasp of avarice",
	"duality",
	"spire of the watcher",
	"ghosts of the deep",
	"warlord's ruin",
	"vesper's host",
	"desert perpetual",
}

// masterMarker flags elevated-difficulty activity variants. Case-sensitive,
// matching the upstream naming convention ("<Activity>: Master").
const masterMarker = "Master"
