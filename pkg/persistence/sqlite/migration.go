package sqlite

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_instances (
				id TEXT PRIMARY KEY,
				definition_id TEXT NOT NULL,
				status TEXT NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'cancelled')),
				user_id TEXT,
				start_time TIMESTAMP NOT NULL,
				end_time TIMESTAMP,
				current_step TEXT,
				error_message TEXT,
				variables TEXT NOT NULL DEFAULT '{}',
				history TEXT NOT NULL DEFAULT '[]',
				suspensions TEXT NOT NULL DEFAULT '[]',
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX idx_workflow_instances_definition_id ON workflow_instances(definition_id);
			CREATE INDEX idx_workflow_instances_status ON workflow_instances(status);
			CREATE INDEX idx_workflow_instances_start_time ON workflow_instances(start_time DESC);
		`,
		2: `
			CREATE TABLE approval_requests (
				id TEXT PRIMARY KEY,
				instance_id TEXT NOT NULL,
				step_id TEXT NOT NULL,
				approver TEXT NOT NULL,
				status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected', 'escalated')),
				notes TEXT,
				timeout_hours REAL NOT NULL DEFAULT 0,
				due_at TIMESTAMP NOT NULL,
				created_at TIMESTAMP NOT NULL,
				decided_at TIMESTAMP
			);

			CREATE INDEX idx_approval_requests_instance_id ON approval_requests(instance_id);
		`,
	}
}
