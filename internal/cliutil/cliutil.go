// Package cliutil holds the little CLI shape every cmd/* binary shares:
// leading positional args ahead of flag.FlagSet options, and the three
// exit codes. Not grounded on any single teacher file since
// modules/stream-capture/cmd/test-capture/main.go has no positional
// args of its own, but the exit-code and --help/--version conventions
// follow it directly; factored out once duplicated identically across
// five binaries.
package cliutil

// Exit codes: 0 on clean exit, -1 on usage error, 1 on a fatal runtime
// error.
const (
	ExitOK    = 0
	ExitUsage = -1
	ExitFatal = 1
)

// SplitPositional pulls up to n leading tokens that don't look like
// flags (don't start with "-") off args, returning them separately from
// the remainder so callers can flag.FlagSet.Parse the remainder
// afterward. original_source's frameserver/main.cpp relies on
// boost::program_options' positional_options_description for the same
// "TYPE SINK" split; stdlib flag has no equivalent, so this does it by
// hand.
func SplitPositional(args []string, n int) (positional, rest []string) {
	i := 0
	for i < len(args) && i < n && len(args[i]) > 0 && args[i][0] != '-' {
		i++
	}
	return args[:i], args[i:]
}
