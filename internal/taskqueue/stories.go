package taskqueue

// Story groups the tasks that share a story_id.
type Story struct {
	ID             string
	Tasks          []Task
	CompletedTasks int
}

// GroupByStory groups tasks by story in first-seen order.
func GroupByStory(tasks []Task) []Story {
	index := make(map[string]int)
	var stories []Story
	for _, t := range tasks {
		i, ok := index[t.StoryID]
		if !ok {
			i = len(stories)
			index[t.StoryID] = i
			stories = append(stories, Story{ID: t.StoryID})
		}
		stories[i].Tasks = append(stories[i].Tasks, t)
		if t.Status == StatusDone {
			stories[i].CompletedTasks++
		}
	}
	return stories
}

// CountStories returns the number of distinct story ids.
func CountStories(tasks []Task) int {
	seen := make(map[string]struct{})
	for _, t := range tasks {
		seen[t.StoryID] = struct{}{}
	}
	return len(seen)
}

// TotalDuration sums the receipt durations in minutes.
func TotalDuration(tasks []Task) int {
	total := 0
	for _, t := range tasks {
		if t.Receipt != nil {
			total += t.Receipt.DurationMinutes
		}
	}
	return total
}

// Commits lists receipt commit hashes in task order.
func Commits(tasks []Task) []string {
	var commits []string
	for _, t := range tasks {
		if t.Receipt != nil && t.Receipt.CommitHash != "" {
			commits = append(commits, t.Receipt.CommitHash)
		}
	}
	return commits
}

// AllDone reports whether the queue has tasks and every one is done.
func AllDone(tasks []Task) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if t.Status != StatusDone {
			return false
		}
	}
	return true
}

// CountByStatus tallies tasks per status.
func CountByStatus(tasks []Task) map[Status]int {
	counts := make(map[Status]int, len(AllStatuses()))
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}
