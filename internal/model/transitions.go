package model

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	// Unblocking is modeled as cancelling the block rows.
	StatusBlocked: {StatusCancelled},
	// COMPLETED and CANCELLED are terminal.
}

// CanTransition reports whether an appointment may move from one status to
// another.
func CanTransition(from, to AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

var queueTransitions = map[QueueStatus][]QueueStatus{
	QueueWaiting:   {QueueInService, QueueCancelled},
	QueueInService: {QueueDone, QueueCancelled},
}

func CanTransitionQueue(from, to QueueStatus) bool {
	for _, allowed := range queueTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

var waitlistTransitions = map[WaitlistStatus][]WaitlistStatus{
	WaitlistWaiting:  {WaitlistNotified, WaitlistCancelled},
	WaitlistNotified: {WaitlistDone, WaitlistCancelled},
}

func CanTransitionWaitlist(from, to WaitlistStatus) bool {
	for _, allowed := range waitlistTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
