package builder

import (
	"fmt"

	"github.com/lirany1/junit-html-report/pkg/logger"
	"github.com/lirany1/junit-html-report/pkg/models"
	"github.com/lirany1/junit-html-report/pkg/results"
)

// ResultsTreeBuilder folds raw provider results into the report model
type ResultsTreeBuilder struct{}

// NewResultsTreeBuilder creates a new tree builder
func NewResultsTreeBuilder() *ResultsTreeBuilder {
	return &ResultsTreeBuilder{}
}

// Build visits every class of the provider and returns the populated tree
func (b *ResultsTreeBuilder) Build(provider results.Provider) (*models.AllTestResults, error) {
	all := models.NewAllTestResults()

	err := provider.VisitClasses(func(class *results.TestClassResult) error {
		if class.ClassName == "" {
			return fmt.Errorf("class %d has no name", class.ID)
		}

		classResults := all.AddClass(class.ID, class.ClassName, class.ClassDisplayName)
		for _, method := range class.Results {
			test := classResults.AddTest(method.ID, method.Name, method.DisplayName, method.Duration)
			if method.Ignored {
				test.SetIgnored()
			}
			for _, failure := range method.Failures {
				test.AddFailure(failure)
			}
		}

		logger.Debugf("Added class %s with %d tests", class.ClassName, len(class.Results))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build results tree: %w", err)
	}

	return all, nil
}
