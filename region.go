package main

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/nvlled/gifburst/lib/capture"
)

// parseRegion reads "left,top,width,height". An empty value selects the
// whole surface.
func parseRegion(value string, size image.Point) (capture.Region, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return capture.RegionOf(image.Rectangle{Max: size}), nil
	}

	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return capture.Region{}, fmt.Errorf("region %q: expected left,top,width,height", value)
	}
	var nums [4]float64
	for i, part := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return capture.Region{}, fmt.Errorf("region %q: %w", value, err)
		}
		nums[i] = n
	}
	region := capture.Region{Left: nums[0], Top: nums[1], Width: nums[2], Height: nums[3]}
	if err := region.Validate(); err != nil {
		return capture.Region{}, err
	}
	return region, nil
}
