package cli

const usageText = `
GymSync Client

Usage:
  gymsync [OPTIONS] COMMAND

Options:
  --version        Show version information
  --server URL     Server URL (default: http://localhost:8080)
  --db PATH        Path to local database (default: gymsync-client.db)
  --offline        Force offline mode (mutations are queued locally)

Commands:
  register                          Register new user
  login                             Login to server and pull workouts
  logout                            Delete the local session
  status                            Show session and pending sync backlog
  list                              List local workouts
  create [title]                    Create a draft workout
  rename <workout> <title>          Rename a workout
  add-exercise <workout> <exercise> [sets]   Add an exercise to a workout
  add-set <exercise-id> <reps> [weight] [rpe]  Record a set
  complete <workout>                Mark a workout as completed
  delete <workout>                  Delete a workout
  duplicate <workout>               Duplicate a workout with all its content
  share <workout>                   Share a workout
  sync                              Flush queued mutations and pull server events

Workouts and exercises are addressed by the local id shown in 'list'.
Every command works offline; changes are queued and pushed by the next
'sync' (or automatically while online).

Examples:
  gymsync register
  gymsync login
  gymsync create "Leg Day"
  gymsync add-exercise 1 squat 3
  gymsync add-set 1 5 120 8.5
  gymsync complete 1
  gymsync duplicate 1
  gymsync --server https://gym.example.com sync
`

const workoutListTemplate = `
=== Workouts ===

{{- if eq (len .) 0 }}
No workouts yet.

Use 'gymsync create "My workout"' to create your first one.

{{ else }}
Found {{len .}} workout(s):

{{- range . }}
- [{{ .Workout.LocalID }}] {{ .Workout.Title }} ({{ .Workout.Status }})
  {{- if .Workout.ServerID }}
   Synced: yes
  {{- else }}
   Synced: pending
  {{- end }}
  {{- range $ex := .Exercises }}
   * [{{ $ex.LocalID }}] {{ $ex.ExerciseID }}{{ if $ex.PlannedSets }} ({{ $ex.PlannedSets }} sets planned){{ end }}
  {{- end }}

{{- end }}
{{- end }}
`
