package snapshot

// ComputeRemovals returns the paths of oldFiles missing from newFiles, in oldFiles order and without duplicates.
func ComputeRemovals(oldFiles []string, newFiles []string) []string {
	retained := make(map[string]struct{}, len(newFiles))
	for _, newFile := range newFiles {
		retained[newFile] = struct{}{}
	}

	removals := make([]string, 0)
	for _, oldFile := range oldFiles {
		if _, exists := retained[oldFile]; exists {
			continue
		}
		retained[oldFile] = struct{}{}
		removals = append(removals, oldFile)
	}
	return removals
}
