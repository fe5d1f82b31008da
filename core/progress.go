package core

import "math"

// Progress returns the percentage of completed lessons, rounded to the
// nearest integer. It is 0 for a course without lessons.
func Progress(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// CourseProgress counts the lessons of course that appear in its completed
// set. Completed ids of lessons that are not in the list are ignored.
func CourseProgress(course *Course, lessons []Lesson) int {
	if course == nil {
		return 0
	}
	done := 0
	for _, l := range lessons {
		if course.HasCompleted(l.ID) {
			done++
		}
	}
	return Progress(done, len(lessons))
}
