package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
)

// The generated scores ask for Noto CJK faces for hanzi lyrics; this
// command copies locally downloaded font files into a directory
// LilyPond searches.
var fontsCmd = &cobra.Command{
	Use:   "install-fonts [dir]",
	Short: "Install CJK fonts from a directory for LilyPond to use",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := "./fonts"
		if len(args) == 1 {
			src = args[0]
		}
		target, err := fontDir()
		if err != nil {
			return err
		}
		n := 0
		for _, glob := range []string{"*.otf", "*.ttf", "*/*.otf", "*/*.ttf"} {
			copied, err := copyFonts(filepath.Join(src, glob), target)
			if err != nil {
				return err
			}
			n += copied
		}
		fmt.Fprintf(os.Stderr, "installed %d font files into %s\n", n, target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fontsCmd)
}

func fontDir() (string, error) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homedir, "Library", "Fonts"), nil
	case "windows":
		return filepath.Join(homedir, "AppData", "Local", "Microsoft", "Windows", "Fonts"), nil
	default:
		return filepath.Join(homedir, ".local", "share", "fonts"), nil
	}
}

func copyFonts(glob, targetDir string) (int, error) {
	files, err := filepath.Glob(glob)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return 0, err
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return 0, err
		}
		if err := os.WriteFile(filepath.Join(targetDir, filepath.Base(file)), data, 0o644); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}
