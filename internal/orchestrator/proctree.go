package orchestrator

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CollectProcessTree walks a container's process tree by BFS over
// /proc/<pid>/task/<pid>/children starting at root, guarded by a visited
// set against any repeated pid the /proc walk might otherwise revisit.
func CollectProcessTree(root int) []int {
	visited := map[int]bool{root: true}
	queue := []int{root}
	order := []int{root}

	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]

		for _, child := range readChildren(pid) {
			if visited[child] {
				continue
			}
			visited[child] = true
			order = append(order, child)
			queue = append(queue, child)
		}
	}
	return order
}

func readChildren(pid int) []int {
	path := filepath.Join("/proc", strconv.Itoa(pid), "task", strconv.Itoa(pid), "children")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var children []int
	for _, f := range strings.Fields(string(data)) {
		if n, err := strconv.Atoi(f); err == nil {
			children = append(children, n)
		}
	}
	return children
}

// ProcessComm reads /proc/<pid>/comm, trimmed, for `ps` output. Returns
// "?" if the process has already exited.
func ProcessComm(pid int) string {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "comm"))
	if err != nil {
		return "?"
	}
	return strings.TrimSpace(string(data))
}
