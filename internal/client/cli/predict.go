package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/agrodetect/internal/client/client"
)

// readFile is a test seam for os.ReadFile.
var readFile = os.ReadFile

// Predict uploads the image at path and prints the diagnosis.
func (a *App) Predict(ctx context.Context, path string) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}

	res, err := a.api.Predict(ctx, path, data)
	if err != nil {
		return err
	}

	a.printPrediction(res)
	return nil
}

func (a *App) printPrediction(p *client.Prediction) {
	a.printf("Crop:        %s (confidence %.1f%%)\n", p.CropName, p.Confidence*100)
	if p.CropDescription != "" {
		a.printf("             %s\n", p.CropDescription)
	}
	if p.Healthy() {
		a.printf("Disease:     none\n")
	} else {
		a.printf("Disease:     %s\n", *p.DiseaseName)
		if p.DiseaseDescription != nil && *p.DiseaseDescription != "" {
			a.printf("             %s\n", *p.DiseaseDescription)
		}
	}
	if p.CareDescription != "" {
		a.printf("Care:        %s\n", p.CareDescription)
	}
}
