package worker

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// finishFileName is the artifacts-directory file written on exit (spec.md
// §6 "Finish status file").
const finishFileName = "finish_status.yaml"

// Autostop records why an autostop condition fired, if one did.
type Autostop struct {
	RPS    int    `yaml:"rps,omitempty"`
	Reason string `yaml:"reason,omitempty"`
	Type   string `yaml:"type,omitempty"`
	RC     int    `yaml:"rc,omitempty"`
}

// FinishStatus is the shape written to finish_status.yaml and returned by
// GetStatus (original_source TankWorker.get_status/save_finish_status).
type FinishStatus struct {
	StatusCode   Status    `yaml:"status_code"`
	ExitCode     int       `yaml:"exit_code"`
	TestID       string    `yaml:"test_id"`
	TankMsg      string    `yaml:"tank_msg"`
	LunaparkID   string    `yaml:"lunapark_id,omitempty"`
	LunaparkURL  string    `yaml:"lunapark_url,omitempty"`
	Autostop     *Autostop `yaml:"autostop,omitempty"`
}

// saveFinishStatus writes status to finish_status.yaml under folder, always
// forcing StatusCode to TestFinished, since that file is only ever written
// once the worker has reached its terminal state.
func saveFinishStatus(folder string, status FinishStatus) error {
	status.StatusCode = TestFinished
	data, err := yaml.Marshal(status)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(folder, finishFileName), data, 0o644)
}
