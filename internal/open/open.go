package open

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Zuo-Peng/nbtrack/internal/record"
)

// OpenLog opens logPath in $EDITOR (less when unset) at the line where the
// record with 0-based index seq starts. A negative seq opens at the top.
func OpenLog(logPath string, seq int) error {
	if _, err := os.Stat(logPath); err != nil {
		return fmt.Errorf("file not found: %s", logPath)
	}

	lineNum := 1
	if seq >= 0 {
		n, err := RecordLine(logPath, seq)
		if err != nil {
			return err
		}
		lineNum = n
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}

	cmd := editorCommand(editor, logPath, lineNum)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// RecordLine returns the 1-based line where record seq of logPath starts.
func RecordLine(logPath string, seq int) (int, error) {
	_, entries, err := record.ReadLog(logPath)
	if err != nil {
		return 0, err
	}
	if seq < 0 || seq >= len(entries) {
		return 0, fmt.Errorf("record %d out of range (log has %d)", seq, len(entries))
	}
	return entries[seq].Line, nil
}

func editorCommand(editor, filePath string, lineNum int) *exec.Cmd {
	switch {
	case strings.Contains(editor, "vim") || strings.Contains(editor, "nvim"):
		return exec.Command(editor, fmt.Sprintf("+%d", lineNum), filePath)
	case strings.Contains(editor, "code"):
		return exec.Command(editor, "--goto", filePath+":"+strconv.Itoa(lineNum))
	case strings.Contains(editor, "less"):
		return exec.Command(editor, "+"+strconv.Itoa(lineNum), filePath)
	default:
		return exec.Command(editor, filePath)
	}
}
