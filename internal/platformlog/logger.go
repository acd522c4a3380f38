// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package platformlog provides structured, one-JSON-line-per-event
// logging, generalized from the teacher's shared/logger package to
// carry a correlation id (spec §7) instead of a multi-tenant client id.
package platformlog

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	DEBUG Level = "DEBUG"
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
)

// Logger emits structured entries for one named component.
type Logger struct {
	Component  string
	InstanceID string
	Container  string
}

// entry is the JSON shape written through the standard log package
// (stderr unless log.SetOutput redirects it).
type entry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         Level                  `json:"level"`
	Component     string                 `json:"component"`
	InstanceID    string                 `json:"instance_id"`
	Container     string                 `json:"container"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	RequestID     string                 `json:"request_id,omitempty"`
	Message       string                 `json:"message"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

// New creates a Logger for component. InstanceID comes from the
// INSTANCE_ID environment variable (set at deployment); Container from
// the process hostname.
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}
	container, err := os.Hostname()
	if err != nil {
		container = "unknown"
	}
	return &Logger{Component: component, InstanceID: instanceID, Container: container}
}

func (l *Logger) log(level Level, correlationID, requestID, message string, fields map[string]interface{}) {
	e := entry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Level:         level,
		Component:     l.Component,
		InstanceID:    l.InstanceID,
		Container:     l.Container,
		CorrelationID: correlationID,
		RequestID:     requestID,
		Message:       message,
		Fields:        fields,
	}
	b, err := json.Marshal(e)
	if err != nil {
		log.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}
	log.Println(string(b))
}

func (l *Logger) Info(correlationID, requestID, message string, fields map[string]interface{}) {
	l.log(INFO, correlationID, requestID, message, fields)
}

func (l *Logger) Error(correlationID, requestID, message string, fields map[string]interface{}) {
	l.log(ERROR, correlationID, requestID, message, fields)
}

func (l *Logger) Warn(correlationID, requestID, message string, fields map[string]interface{}) {
	l.log(WARN, correlationID, requestID, message, fields)
}

func (l *Logger) Debug(correlationID, requestID, message string, fields map[string]interface{}) {
	l.log(DEBUG, correlationID, requestID, message, fields)
}

// InfoWithDuration logs an info message carrying a duration_ms field.
func (l *Logger) InfoWithDuration(correlationID, requestID, message string, durationMS float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.Info(correlationID, requestID, message, fields)
}
