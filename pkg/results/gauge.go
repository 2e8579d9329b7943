package results

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getgauge/gauge-proto/go/gauge_messages"
	"github.com/lirany1/junit-html-report/pkg/models"
	"google.golang.org/protobuf/proto"
)

// GaugeProvider adapts a Gauge suite result: each spec becomes a class and
// each scenario a test method.
type GaugeProvider struct {
	classes []*TestClassResult
}

// LoadGaugeFile reads a serialized ProtoSuiteResult
func LoadGaugeFile(path string) (*GaugeProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	suite := &gauge_messages.ProtoSuiteResult{}
	if err := proto.Unmarshal(data, suite); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proto data: %w", err)
	}

	return NewGaugeProvider(suite), nil
}

// NewGaugeProvider converts a suite result received from Gauge
func NewGaugeProvider(suite *gauge_messages.ProtoSuiteResult) *GaugeProvider {
	p := &GaugeProvider{}
	var nextID int64

	for _, specResult := range suite.GetSpecResults() {
		spec := specResult.GetProtoSpec()
		nextID++
		class := &TestClassResult{
			ID:               nextID,
			ClassName:        specClassName(spec.GetFileName(), spec.GetSpecHeading()),
			ClassDisplayName: spec.GetSpecHeading(),
		}

		for _, item := range spec.GetItems() {
			if item.GetItemType() != gauge_messages.ProtoItem_Scenario {
				continue
			}
			nextID++
			class.Results = append(class.Results, convertScenario(nextID, item.GetScenario()))
		}

		p.classes = append(p.classes, class)
	}

	return p
}

// VisitClasses calls fn for every spec in suite order
func (p *GaugeProvider) VisitClasses(fn func(*TestClassResult) error) error {
	for _, c := range p.classes {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// HasOutput is always false: Gauge results carry no per-spec console capture
func (p *GaugeProvider) HasOutput(classID int64, dest models.Destination) bool {
	return false
}

// WriteAllOutput writes nothing
func (p *GaugeProvider) WriteAllOutput(classID int64, dest models.Destination, w io.Writer) error {
	return nil
}

func convertScenario(id int64, scenario *gauge_messages.ProtoScenario) *TestMethodResult {
	method := &TestMethodResult{
		ID:       id,
		Name:     scenario.GetScenarioHeading(),
		Duration: time.Duration(scenario.GetExecutionTime()) * time.Millisecond,
		//nolint:staticcheck // deprecated in favour of execution status, still populated by Gauge
		Ignored: scenario.GetSkipped(),
	}

	for _, item := range scenario.GetScenarioItems() {
		if item.GetItemType() != gauge_messages.ProtoItem_Step {
			continue
		}
		result := item.GetStep().GetStepExecutionResult().GetExecutionResult()
		if result.GetFailed() {
			method.Failures = append(method.Failures, models.TestFailure{
				Message:    result.GetErrorMessage(),
				StackTrace: result.GetStackTrace(),
			})
		}
	}

	//nolint:staticcheck // deprecated in favour of execution status, still populated by Gauge
	if scenario.GetFailed() && len(method.Failures) == 0 {
		method.Failures = append(method.Failures, models.TestFailure{
			StackTrace: "Scenario failed outside of its steps (hook failure)",
		})
	}

	return method
}

// specClassName turns specs/checkout/payment.spec into checkout.payment
func specClassName(fileName, heading string) string {
	if fileName == "" {
		return heading
	}
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	dir := filepath.Base(filepath.Dir(fileName))
	if dir == "." || dir == string(filepath.Separator) {
		return base
	}
	return dir + "." + base
}
