package services

// dinerPalette is the fixed set of display colors assigned to diners in join
// order. Wraps around; at the table sizes we care about this never collides.
var dinerPalette = []string{
	"#E63946", // red
	"#457B9D", // blue
	"#2A9D8F", // teal
	"#E9C46A", // amber
	"#9D4EDD", // purple
	"#F4845F", // coral
	"#588157", // green
	"#FF70A6", // pink
}

// colorForJoinIndex returns the palette color for the nth diner to join.
// Deterministic and stable: the index is the diner's position in the join
// order, so repeated lookups always agree.
func colorForJoinIndex(n int) string {
	if n < 0 {
		n = 0
	}
	return dinerPalette[n%len(dinerPalette)]
}
