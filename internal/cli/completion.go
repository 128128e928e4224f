package cli

import (
	"fmt"
	"io"
	"strings"
)

// Shells accepted by GenerateCompletion.
var completionShells = []string{"bash", "zsh", "fish"}

// GenerateCompletion writes a completion script for shell. backends are the
// registered backend identifiers offered after -backend.
func GenerateCompletion(out io.Writer, shell string, backends []string) error {
	choices := strings.Join(append(append([]string{}, backends...), "all"), " ")
	var script string
	switch shell {
	case "bash":
		script = bashCompletion
	case "zsh":
		script = zshCompletion
	case "fish":
		script = fishCompletion
	default:
		return fmt.Errorf("unsupported shell: %s (accepted values: %s)", shell, strings.Join(completionShells, ", "))
	}
	_, err := fmt.Fprintf(out, script, choices)
	return err
}

const bashCompletion = `# Bash completion for dftcalc
# Add to ~/.bashrc: source <(dftcalc -completion bash)

_dftcalc_completions() {
    local cur prev opts backends
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    opts="-backend -mode -sources -visibilities -force-zero-w -synthetic-sources -synthetic-visibilities -gaussian -seed -sources-file -visibilities-file -output -o -compare-with -grid-size -cell-size -frequency -blocks -lanes -chunk-size -cpu-workers -accelerator-workers -timeout -json -quiet -q -preview -no-color -log-level -server -port -calibrate -auto-calibrate -calibration-profile -config -dump-config -completion"
    backends="%s"

    case "${prev}" in
        -backend|-mode)
            COMPREPLY=( $(compgen -W "${backends}" -- "${cur}") )
            return 0
            ;;
        -completion)
            COMPREPLY=( $(compgen -W "bash zsh fish" -- "${cur}") )
            return 0
            ;;
        -log-level)
            COMPREPLY=( $(compgen -W "debug info warn error off" -- "${cur}") )
            return 0
            ;;
        -sources-file|-visibilities-file|-output|-o|-compare-with|-calibration-profile|-config)
            COMPREPLY=( $(compgen -f -- "${cur}") )
            return 0
            ;;
    esac

    if [[ "${cur}" == -* ]]; then
        COMPREPLY=( $(compgen -W "${opts}" -- "${cur}") )
    fi
}

complete -F _dftcalc_completions dftcalc
`

const zshCompletion = `#compdef dftcalc
# Zsh completion for dftcalc

_dftcalc() {
    local -a backends
    backends=(%s)

    _arguments \
        '-backend[Backend to run]:backend:($backends)' \
        '-mode[Alias for -backend]:backend:($backends)' \
        '-sources[Number of synthetic sources]:count:' \
        '-visibilities[Number of synthetic visibilities]:count:' \
        '-force-zero-w[Ignore the w coordinate]' \
        '-synthetic-sources[Generate random sources]' \
        '-synthetic-visibilities[Generate random visibilities]' \
        '-gaussian[Gaussian visibility coordinates]' \
        '-seed[Generator seed]:seed:' \
        '-sources-file[Sources input file]:file:_files' \
        '-visibilities-file[Visibilities input file]:file:_files' \
        '(-o -output)'{-o,-output}'[Output file]:file:_files' \
        '-compare-with[Saved output to compare against]:file:_files' \
        '-grid-size[Grid dimension]:size:' \
        '-cell-size[Cell size in radians]:radians:' \
        '-frequency[Frequency in Hz]:hz:' \
        '-blocks[Accelerator blocks]:count:' \
        '-lanes[Lanes per block]:count:' \
        '-chunk-size[Task chunk size]:count:' \
        '-cpu-workers[CPU workers]:count:' \
        '-accelerator-workers[Accelerator workers]:count:' \
        '-timeout[Maximum run time]:duration:(30s 1m 5m 10m)' \
        '-json[JSON summary]' \
        '(-q -quiet)'{-q,-quiet}'[Quiet mode]' \
        '-preview[Print the first visibilities]' \
        '-no-color[Disable colors]' \
        '-log-level[Log level]:level:(debug info warn error off)' \
        '-server[HTTP server mode]' \
        '-port[Server port]:port:' \
        '-calibrate[Run calibration]' \
        '-auto-calibrate[Apply calibration at startup]' \
        '-calibration-profile[Calibration profile]:file:_files' \
        '-config[YAML configuration]:file:_files' \
        '-dump-config[Print the effective configuration]' \
        '-completion[Print a completion script]:shell:(bash zsh fish)'
}

_dftcalc "$@"
`

const fishCompletion = `# Fish completion for dftcalc
# Save as ~/.config/fish/completions/dftcalc.fish

complete -c dftcalc -f
complete -c dftcalc -o backend -o mode -d 'Backend to run' -xa '%s'
complete -c dftcalc -o sources -d 'Number of synthetic sources' -x
complete -c dftcalc -o visibilities -d 'Number of synthetic visibilities' -x
complete -c dftcalc -o force-zero-w -d 'Ignore the w coordinate'
complete -c dftcalc -o synthetic-sources -d 'Generate random sources'
complete -c dftcalc -o synthetic-visibilities -d 'Generate random visibilities'
complete -c dftcalc -o gaussian -d 'Gaussian visibility coordinates'
complete -c dftcalc -o seed -d 'Generator seed' -x
complete -c dftcalc -o sources-file -o visibilities-file -o output -o o -o compare-with -d 'Data file' -rF
complete -c dftcalc -o grid-size -o cell-size -o frequency -d 'Instrument setting' -x
complete -c dftcalc -o blocks -o lanes -o chunk-size -o cpu-workers -o accelerator-workers -d 'Tuning' -x
complete -c dftcalc -o timeout -d 'Maximum run time' -xa '30s 1m 5m 10m'
complete -c dftcalc -o json -d 'JSON summary'
complete -c dftcalc -o quiet -o q -d 'Quiet mode'
complete -c dftcalc -o preview -d 'Print the first visibilities'
complete -c dftcalc -o no-color -d 'Disable colors'
complete -c dftcalc -o log-level -d 'Log level' -xa 'debug info warn error off'
complete -c dftcalc -o server -d 'HTTP server mode'
complete -c dftcalc -o port -d 'Server port' -x
complete -c dftcalc -o calibrate -d 'Run calibration'
complete -c dftcalc -o auto-calibrate -d 'Apply calibration at startup'
complete -c dftcalc -o calibration-profile -o config -d 'Profile or configuration file' -rF
complete -c dftcalc -o dump-config -d 'Print the effective configuration'
complete -c dftcalc -o completion -d 'Print a completion script' -xa 'bash zsh fish'
`
