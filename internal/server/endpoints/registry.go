package endpoints

import (
	"github.com/jackzampolin/colorbook/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	all := []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
	}
	all = append(all, SessionEndpoints()...)
	all = append(all, IdeaEndpoints()...)
	all = append(all, PageEndpoints()...)
	all = append(all, JobEndpoints()...)
	all = append(all, SettingsEndpoints()...)
	return append(all,
		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: GetSwaggerSpecPath()},
		&SwaggerUIEndpoint{},
	)
}

// SessionEndpoints drive a wizard session: its batch, stage jobs, progress,
// exports and run report. Grouped under "sessions" on the CLI.
func SessionEndpoints() []api.Endpoint {
	return []api.Endpoint{
		&CreateSessionEndpoint{},
		&ListSessionsEndpoint{},
		&GetSessionEndpoint{},
		&DeleteSessionEndpoint{},
		&SetBookTypeEndpoint{},
		&StepsEndpoint{},
		&CreateBatchEndpoint{},
		&StartStageEndpoint{},
		&RetryStageEndpoint{},
		&RunPipelineEndpoint{},
		&ControlEndpoint{Action: ActionPause},
		&ControlEndpoint{Action: ActionResume},
		&ControlEndpoint{Action: ActionCancel},
		&ProgressEndpoint{},
		&ExportBookEndpoint{},
		&PutHandoffEndpoint{},
		&GetHandoffEndpoint{},
		&GetReportEndpoint{},
		&WriteReportEndpoint{},
	}
}

// IdeaEndpoints are grouped under "ideas" on the CLI.
func IdeaEndpoints() []api.Endpoint {
	return []api.Endpoint{
		&GenerateIdeasEndpoint{},
		&SetIdeasEndpoint{},
	}
}

// PageEndpoints are grouped under "pages" on the CLI.
func PageEndpoints() []api.Endpoint {
	return []api.Endpoint{
		&RegeneratePageEndpoint{},
		&ApprovePageEndpoint{},
		&SelectVersionEndpoint{},
		&PageImageEndpoint{},
	}
}

// JobEndpoints are grouped under "jobs" on the CLI.
func JobEndpoints() []api.Endpoint {
	return []api.Endpoint{
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&CancelJobEndpoint{},
	}
}

// SettingsEndpoints are grouped under "settings" on the CLI.
func SettingsEndpoints() []api.Endpoint {
	return []api.Endpoint{
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},
		&UpdateSettingEndpoint{},
		&ResetSettingEndpoint{},
	}
}
