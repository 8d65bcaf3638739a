package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// printHeader prints a formatted section header.
func printHeader(title string) {
	fmt.Printf("\n%s%s%s\n", styleBoldCyan, title, colorReset)
	fmt.Println(colorDim + strings.Repeat("-", len(title)+2) + colorReset)
}

// printField prints a labeled field.
func printField(label, value string) {
	fmt.Printf("  %s%-26s%s %s\n", colorBold, label+":", colorReset, value)
}

// statusColor returns an ANSI color code for a record or backend status.
func statusColor(status string) string {
	switch strings.ToLower(status) {
	case "active", "running", "success", "valid":
		return colorGreen
	case "inactive", "stopped":
		return colorDim
	case "invalid", "error", "failed":
		return colorRed
	default:
		return colorWhite
	}
}

func statusBadge(status string) string {
	return fmt.Sprintf("%s[%s]%s", statusColor(status), status, colorReset)
}

// printTable prints a simple table with headers and rows.
func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println(colorDim + "  (none)" + colorReset)
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if n := len(stripAnsi(cell)); n > widths[i] {
					widths[i] = n
				}
			}
		}
	}

	headerLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%s%-*s%s", colorBold, widths[i]+2, h, colorReset)
	}
	fmt.Println(headerLine)

	sepLine := "  "
	for _, w := range widths {
		sepLine += colorDim + strings.Repeat("-", w+2) + colorReset
	}
	fmt.Println(sepLine)

	for _, row := range rows {
		rowLine := "  "
		for i, cell := range row {
			if i < len(widths) {
				padding := widths[i] - len(stripAnsi(cell))
				if padding < 0 {
					padding = 0
				}
				rowLine += cell + strings.Repeat(" ", padding+2)
			}
		}
		fmt.Println(rowLine)
	}
}

// stripAnsi removes ANSI escape codes from a string (for width calculation).
func stripAnsi(s string) string {
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

// truncate shortens s to maxLen runes, ending in "..." when cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// printJSON writes v indented to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readJSONArg returns inline JSON or the contents of a file; "-" reads stdin.
func readJSONArg(inline, file string) ([]byte, error) {
	if strings.TrimSpace(file) != "" {
		if file == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			return data, nil
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		return data, nil
	}
	if strings.TrimSpace(inline) == "" {
		return nil, fmt.Errorf("provide JSON via --data or --file")
	}
	return []byte(inline), nil
}
