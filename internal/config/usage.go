package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/agbru/dftcalc/internal/ui"
)

// flagGroups orders the usage output. Flags not listed fall into "Other".
var flagGroups = []struct {
	title string
	flags []string
}{
	{"Workload", []string{"backend", "mode", "force-zero-w", "synthetic-sources", "synthetic-visibilities", "sources", "visibilities", "gaussian", "seed"}},
	{"Files", []string{"sources-file", "visibilities-file", "output", "o", "compare-with", "config", "dump-config", "completion"}},
	{"Instrument", []string{"grid-size", "cell-size", "frequency"}},
	{"Tuning", []string{"blocks", "lanes", "chunk-size", "cpu-workers", "accelerator-workers", "calibrate", "auto-calibrate", "calibration-profile", "timeout"}},
	{"Output & service", []string{"json", "quiet", "q", "preview", "no-color", "log-level", "server", "port"}},
}

// setCustomUsage installs a themed, grouped usage printer on fs.
func setCustomUsage(fs *flag.FlagSet) {
	fs.Usage = func() {
		t := ui.GetCurrentTheme()
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			t = ui.NoColorTheme
		}
		out := fs.Output()

		fmt.Fprintf(out, "\n%sDFT Visibility Extractor%s\n", t.Bold, t.Reset)
		fmt.Fprintf(out, "Direct Fourier Transform visibility extraction on interchangeable backends.\n\n")
		fmt.Fprintf(out, "%sUsage:%s\n  %s [flags]\n", t.Warning, t.Reset, fs.Name())

		printed := make(map[string]bool)
		printFlag := func(f *flag.Flag) {
			printed[f.Name] = true
			name, usage := flag.UnquoteUsage(f)
			sig := "-" + f.Name
			if name != "" {
				sig += " " + name
			}
			fmt.Fprintf(out, "  %s%-28s%s %s", t.Primary, sig, t.Reset, usage)
			if f.DefValue != "" && f.DefValue != "0" && f.DefValue != "false" && f.DefValue != "0s" {
				fmt.Fprintf(out, " %s(default %s)%s", t.Secondary, f.DefValue, t.Reset)
			}
			fmt.Fprintln(out)
		}

		for _, group := range flagGroups {
			fmt.Fprintf(out, "\n%s%s:%s\n", t.Warning, group.title, t.Reset)
			for _, name := range group.flags {
				if f := fs.Lookup(name); f != nil {
					printFlag(f)
				}
			}
		}

		header := false
		fs.VisitAll(func(f *flag.Flag) {
			if printed[f.Name] {
				return
			}
			if !header {
				fmt.Fprintf(out, "\n%sOther:%s\n", t.Warning, t.Reset)
				header = true
			}
			printFlag(f)
		})
		fmt.Fprintf(out, "\nEnvironment variables prefixed with %s override defaults and the config file.\n\n", EnvPrefix)
	}
}
