package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xmjiao/jianpu-ly/jianpu"
)

var (
	staffOnly       bool
	withStaff       bool
	sloppyBars      bool
	noRestHack      bool
	barNumberEvery  int
	padding         int
	staffSize       float64
	instrument      string
	lilypondVersion string
	outFile         string
)

var rootCmd = &cobra.Command{
	Use:   "jianpu-ly [file]",
	Short: "Convert jianpu (numbered musical notation) to LilyPond",
	Long: `Reads jianpu text from a file (or standard input) and writes a
LilyPond document that renders it, complete with lyrics, western staff
doubling and MIDI output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput(args)
		if err != nil {
			return err
		}
		minor, err := parseLilyMinor(lilypondVersion)
		if err != nil {
			return err
		}
		conv := jianpu.New(jianpu.Config{
			StaffOnly:      staffOnly,
			WithStaff:      withStaff,
			SloppyBars:     sloppyBars,
			NoRestHack:     noRestHack,
			BarNumberEvery: barNumberEvery,
			Padding:        padding,
			StaffSize:      staffSize,
			Instrument:     instrument,
			LilyMinor:      minor,
		})
		out, err := conv.Convert(input)
		if err != nil {
			return err
		}
		for _, w := range conv.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", w.Message)
		}
		if outFile == "" {
			_, err = os.Stdout.WriteString(out)
			return err
		}
		return os.WriteFile(outFile, []byte(out), 0o644)
	},
}

func init() {
	f := rootCmd.Flags()
	f.BoolVarP(&staffOnly, "staff-only", "s", false, "emit only the western staff, no jianpu")
	f.BoolVarP(&withStaff, "with-staff", "B", false, "double every jianpu staff with a western staff")
	f.BoolVar(&sloppyBars, "sloppy-bars", false, "warn instead of fail on an incomplete final bar")
	f.BoolVar(&noRestHack, "no-rest-hack", false, "disable the isolated quaver rest workaround")
	f.IntVarP(&barNumberEvery, "bar-number-every", "b", 0, "print a bar number every n bars (0: per line)")
	f.IntVarP(&padding, "padding", "p", 3, "spacing between lyric systems")
	f.Float64Var(&staffSize, "staff-size", 20, "LilyPond global staff size")
	f.StringVarP(&instrument, "instrument", "i", "choir aahs", "MIDI instrument name")
	f.StringVar(&lilypondVersion, "lilypond-version", "2.22", "LilyPond version to target")
	f.StringVarP(&outFile, "out", "o", "", "output file (default: standard output)")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	return string(data), err
}

// parseLilyMinor extracts the 2.x minor version; only that part changes
// the generated overrides.
func parseLilyMinor(version string) (int, error) {
	parts := strings.Split(version, ".")
	if len(parts) < 2 || parts[0] != "2" {
		return 0, fmt.Errorf("unsupported LilyPond version %q (want 2.x)", version)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("unsupported LilyPond version %q: %v", version, err)
	}
	return minor, nil
}
