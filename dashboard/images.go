package dashboard

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

var ErrUnknownImage = errors.New("unknown image label")

// Image is a pre-rendered chart file known by a label.
type Image struct {
	Label   string
	File    string
	Caption string
}

const (
	ImageAllYears = "all-years"
	Image5Year    = "5-year-average"
	Image10Year   = "10-year-average"
	Image15Year   = "15-year-average"
	ImageMonthly  = "monthly-returns"
	ImageWeekly   = "weekly-returns"
)

// SeasonalityLabels are the seasonality windows in tab order.
var SeasonalityLabels = []string{ImageAllYears, Image5Year, Image10Year, Image15Year}

// Months are the intra-month image labels in calendar order.
var Months = func() []string {
	months := make([]string, 12)
	for m := time.January; m <= time.December; m++ {
		months[m-1] = MonthLabel(m)
	}
	return months
}()

// MonthLabel is the three letter label of a month, e.g. "Mar".
func MonthLabel(m time.Month) string {
	return m.String()[:3]
}

// Catalog is the fixed set of images the TASI page shows. Images are only reachable through
// their labels.
type Catalog struct {
	dir    string
	images map[string]Image
	order  []string
}

// NewCatalog returns the catalog of images stored in dir.
func NewCatalog(dir string) *Catalog {
	c := &Catalog{
		dir:    dir,
		images: make(map[string]Image),
	}
	c.add(Image{Label: ImageAllYears, File: "All_Seasonality.png", Caption: "📅 All Years"})
	c.add(Image{Label: Image5Year, File: "5YearAvg.png", Caption: "5-Year Average"})
	c.add(Image{Label: Image10Year, File: "10YearAvg.png", Caption: "10-Year Average"})
	c.add(Image{Label: Image15Year, File: "15YearAvg.png", Caption: "15-Year Average"})
	c.add(Image{Label: ImageMonthly, File: "MonthlyReturn.png", Caption: "Monthly Returns"})
	c.add(Image{Label: ImageWeekly, File: "WeeklyReturn.png", Caption: "Weekly Returns"})
	for _, month := range Months {
		c.add(Image{Label: month, File: month + "Return.png", Caption: month})
	}
	return c
}

func (c *Catalog) add(img Image) {
	c.images[img.Label] = img
	c.order = append(c.order, img.Label)
}

// Dir returns the directory the image files are stored in.
func (c *Catalog) Dir() string {
	return c.dir
}

// Image returns the image with the given label.
func (c *Catalog) Image(label string) (Image, error) {
	img, ok := c.images[label]
	if !ok {
		return Image{}, fmt.Errorf("%q, %w", label, ErrUnknownImage)
	}
	return img, nil
}

// Lookup returns the file path of the image with the given label.
func (c *Catalog) Lookup(label string) (string, error) {
	img, err := c.Image(label)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.dir, img.File), nil
}

// Labels returns every label in page order.
func (c *Catalog) Labels() []string {
	labels := make([]string, len(c.order))
	copy(labels, c.order)
	return labels
}
