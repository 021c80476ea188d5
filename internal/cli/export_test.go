package cli

var (
	Num    = num
	Pct    = pct
	OptPct = optPct
)
