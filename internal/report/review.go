package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"autotrans/internal/prompt"
)

// Review asks the operator to accept the report at path. On refusal the
// operator picks releases to drop one at a time; the returned indexes refer
// to titles.
func Review(console *prompt.Console, path string, titles []string) ([]int, error) {
	for {
		answer, err := console.Ask(fmt.Sprintf("Spectrogram report generated at %s. Continue (y/n)? ", path))
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(answer) {
		case "y":
			return nil, nil
		case "n":
			return selectDrops(console, titles)
		}
	}
}

func selectDrops(console *prompt.Console, titles []string) ([]int, error) {
	remaining := make([]int, len(titles))
	for i := range titles {
		remaining[i] = i
	}
	var dropped []int
	for len(remaining) > 0 {
		var b strings.Builder
		for pos, index := range remaining {
			fmt.Fprintf(&b, "[%d] %s\n", pos+1, titles[index])
		}
		b.WriteString("\nSelect release to drop (empty to continue): ")
		answer, err := console.Ask(b.String())
		if err != nil {
			return nil, err
		}
		if answer == "" {
			break
		}
		pos, err := strconv.Atoi(answer)
		if err != nil || pos < 1 || pos > len(remaining) {
			continue
		}
		dropped = append(dropped, remaining[pos-1])
		remaining = append(remaining[:pos-1], remaining[pos:]...)
	}
	sort.Ints(dropped)
	return dropped, nil
}
