package natsbus

import "fmt"

// Topic patterns for NATS pub/sub communication.

func TopicRunEvents(runID string) string {
	return fmt.Sprintf("run.%s.events", runID)
}

func TopicRunControl(runID string) string {
	return fmt.Sprintf("run.%s.control", runID)
}

func TopicSchedulerRun(scheduleID string) string {
	return fmt.Sprintf("scheduler.%s.run", scheduleID)
}

const (
	TopicRunEventsAll = "run.*.events"
	TopicRunsAll      = "run.>"
)
