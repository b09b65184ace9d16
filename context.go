package lintflow

import (
	"bufio"

	"github.com/spf13/afero"
)

// CodeContext represents source code lines around a violation
type CodeContext struct {
	Lines         []CodeLine // Source lines with context
	ViolationLine int        // Which line has the violation (1-indexed)
}

// CodeLine represents a single line of source code
type CodeLine struct {
	Number      int    // Line number (1-indexed)
	Content     string // Line content
	IsViolation bool   // True if this is the violation line
}

// ExtractCodeContext extracts source code around a violation position,
// showing contextLines lines before and after.
func ExtractCodeContext(fs afero.Fs, filePath string, position *Position, contextLines int) (*CodeContext, error) {
	if position == nil || !position.IsValid() {
		return nil, nil // No position, no context
	}

	file, err := fs.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if position.Line > len(lines) {
		return nil, nil
	}

	startLine := max(1, position.Line-contextLines)
	endLine := min(len(lines), position.Line+contextLines)

	var codeLines []CodeLine
	for i := startLine; i <= endLine; i++ {
		codeLines = append(codeLines, CodeLine{
			Number:      i,
			Content:     lines[i-1],
			IsViolation: i == position.Line,
		})
	}

	return &CodeContext{
		Lines:         codeLines,
		ViolationLine: position.Line,
	}, nil
}
