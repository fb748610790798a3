package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workflow_instances table
			CREATE TABLE workflow_instances (
				id VARCHAR(255) PRIMARY KEY,
				definition_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'cancelled')),
				user_id VARCHAR(255),
				start_time TIMESTAMP WITH TIME ZONE NOT NULL,
				end_time TIMESTAMP WITH TIME ZONE,
				current_step VARCHAR(255),
				error_message TEXT,
				variables JSONB NOT NULL DEFAULT '{}',
				history JSONB NOT NULL DEFAULT '[]',
				suspensions JSONB NOT NULL DEFAULT '[]',
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_workflow_instances_definition_id ON workflow_instances(definition_id);
			CREATE INDEX idx_workflow_instances_status ON workflow_instances(status);
			CREATE INDEX idx_workflow_instances_user_id ON workflow_instances(user_id);
			CREATE INDEX idx_workflow_instances_start_time ON workflow_instances(start_time DESC);
		`,
		2: `
			-- Create approval_requests table
			CREATE TABLE approval_requests (
				id VARCHAR(255) PRIMARY KEY,
				instance_id VARCHAR(255) NOT NULL,
				step_id VARCHAR(255) NOT NULL,
				approver VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected', 'escalated')),
				notes TEXT,
				timeout_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
				due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				decided_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_approval_requests_instance_id ON approval_requests(instance_id);
			CREATE INDEX idx_approval_requests_status ON approval_requests(status);
		`,
	}
}
