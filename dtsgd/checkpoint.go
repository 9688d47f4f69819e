package dtsgd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// SaveModel persists a trained model to a named file, creating the
// parent directory if needed.
func SaveModel(path string, model serializer.Serializer) (err error) {
	defer essentials.AddCtxTo("save model", &err)
	data, err := serializer.SerializeAny(model)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// LoadModel restores a model from a named file into dest, which must
// be a pointer to a registered serializer type.
func LoadModel(path string, dest interface{}) (err error) {
	defer essentials.AddCtxTo("load model", &err)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return serializer.DeserializeAny(data, dest)
}

// HasModel reports whether a persisted model exists at the path.
// A missing model is not an error; it triggers the training fallback
// path.
func HasModel(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Checkpoint writes a periodic snapshot of the model, keyed by its
// logical name and the epoch.
// The directory may already contain checkpoints; files accumulate or
// overwrite by convention.
func Checkpoint(dir, name string, epoch int, model serializer.Serializer) error {
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.bin", name, epoch))
	if err := SaveModel(path, model); err != nil {
		return essentials.AddCtx("checkpoint", err)
	}
	return nil
}
