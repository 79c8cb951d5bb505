package domain

// CanModifyTask is the single authorization rule for task status and acceptance
// changes: admins may act on any task, everyone else only on tasks assigned to them.
func CanModifyTask(actor *User, task *Task) bool {
	if actor == nil || task == nil || !actor.IsActive() {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return task.AssignedTo != "" && task.AssignedTo == actor.ID
}

// CanViewComments allows admins and the assignee.
func CanViewComments(actor *User, task *Task) bool {
	return CanModifyTask(actor, task)
}

// CanAddComment allows only the assignee, and only once the task is completed.
func CanAddComment(actor *User, task *Task) bool {
	if actor == nil || task == nil || !actor.IsActive() {
		return false
	}
	return task.AssignedTo == actor.ID && task.IsCompleted()
}

// CanDeleteComment allows the author and admins.
func CanDeleteComment(actor *User, comment *TaskComment) bool {
	if actor == nil || comment == nil || !actor.IsActive() {
		return false
	}
	return actor.IsAdmin() || comment.UserID == actor.ID
}
