package support

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/MeKo-Tech/modelcheck/internal/testutil"
	"github.com/cucumber/godog"
)

func (testCtx *TestContext) writeModel(rel string, m *onnx.Model) error {
	path := testCtx.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	return onnx.Save(path, m)
}

func (testCtx *TestContext) writeRaw(rel string, data []byte) error {
	path := testCtx.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (testCtx *TestContext) aValidModel(rel string) error {
	return testCtx.writeModel(rel, testutil.ValidModel())
}

func (testCtx *TestContext) aConflictingModel(rel string) error {
	return testCtx.writeModel(rel, testutil.ConflictingShapeModel())
}

func (testCtx *TestContext) anUnknownOpModel(rel string) error {
	return testCtx.writeModel(rel, testutil.UnknownOpModel())
}

func (testCtx *TestContext) aTruncatedModel(rel string) error {
	data := onnx.Marshal(testutil.ValidModel())
	return testCtx.writeRaw(rel, data[:len(data)/2])
}

func (testCtx *TestContext) anLFSPointer(rel string) error {
	return testCtx.writeRaw(rel, testutil.LFSPointer(4096))
}

func (testCtx *TestContext) aFile(rel string) error {
	return testCtx.writeRaw(rel, []byte("not a model"))
}

func (testCtx *TestContext) aConfigFile(rel string, body *godog.DocString) error {
	return os.WriteFile(filepath.Join(testCtx.TempDir, rel), []byte(body.Content), 0o600)
}

func (testCtx *TestContext) theFileShouldExist(rel string) error {
	if !testutil.FileExists(testCtx.Path(rel)) {
		return fmt.Errorf("file %s does not exist", rel)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldNotExist(rel string) error {
	if testutil.FileExists(testCtx.Path(rel)) {
		return fmt.Errorf("file %s still exists", rel)
	}
	return nil
}

// RegisterModelSteps registers the steps that build a model repository.
func (testCtx *TestContext) RegisterModelSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a valid model "([^"]*)"$`, testCtx.aValidModel)
	sc.Step(`^a model "([^"]*)" whose declared output shape conflicts with inference$`, testCtx.aConflictingModel)
	sc.Step(`^a model "([^"]*)" using an unknown operator$`, testCtx.anUnknownOpModel)
	sc.Step(`^a truncated model "([^"]*)"$`, testCtx.aTruncatedModel)
	sc.Step(`^an LFS pointer "([^"]*)"$`, testCtx.anLFSPointer)
	sc.Step(`^a non-model file "([^"]*)"$`, testCtx.aFile)
	sc.Step(`^a config file "([^"]*)" with:$`, testCtx.aConfigFile)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
}
