package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrTaskIDRequired indicates no task ID was provided.
var ErrTaskIDRequired = errors.New("task id required")

// ParseTaskID parses a single task ID from the first argument.
// A leading "#" is accepted, so "#12" and "12" are the same task.
func ParseTaskID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, ErrTaskIDRequired
	}
	if len(args) > 1 {
		return 0, fmt.Errorf("unexpected argument: %s", args[1])
	}
	return parseID(args[0])
}

// ParseTaskIDs parses one or more task IDs. Duplicates are dropped, keeping
// the first occurrence.
func ParseTaskIDs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, ErrTaskIDRequired
	}

	seen := make(map[int64]bool, len(args))
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(s string) (int64, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task id: %s", s)
	}
	return id, nil
}
