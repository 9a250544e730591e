package core

import (
	"fmt"
	"strings"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
)

// ValidateNames splits query into the names present in supported and the
// ones that are missing, keeping the order of query. Duplicates in query
// are selected once.
func ValidateNames(query, supported []string) (selected, missing []string) {
	available := make(map[string]struct{}, len(supported))
	for _, s := range supported {
		available[trimNull(s)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(query))
	for _, q := range query {
		name := trimNull(q)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		if _, ok := available[name]; ok {
			selected = append(selected, name)
		} else {
			missing = append(missing, name)
		}
	}
	return selected, missing
}

// negotiate validates required and optional names against supported.
// Missing required names fail the negotiation, missing optional ones
// are only logged.
func negotiate(logger log.FieldLogger, kind string, required, optional, supported []string) ([]string, error) {
	selected, missing := ValidateNames(required, supported)
	for _, name := range missing {
		logger.Errorf("required %s: %s is not supported", kind, name)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingExtensions, strings.Join(missing, ", "))
	}

	optSelected, optMissing := ValidateNames(optional, supported)
	for _, name := range optMissing {
		logger.Infof("optional %s: %s is not supported", kind, name)
	}

	// dedup names listed as both required and optional
	selected, _ = ValidateNames(append(selected, optSelected...), supported)
	return selected, nil
}

func instanceExtensions() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, fmt.Errorf("vk.EnumerateInstanceExtensionProperties(): %w", err)
	}
	props := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, fmt.Errorf("vk.EnumerateInstanceExtensionProperties(): %w", err)
	}

	names := make([]string, 0, count)
	for _, p := range props {
		p.Deref()
		names = append(names, vk.ToString(p.ExtensionName[:]))
	}
	return names, nil
}

func instanceLayers() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, fmt.Errorf("vk.EnumerateInstanceLayerProperties(): %w", err)
	}
	props := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, fmt.Errorf("vk.EnumerateInstanceLayerProperties(): %w", err)
	}

	names := make([]string, 0, count)
	for _, p := range props {
		p.Deref()
		names = append(names, vk.ToString(p.LayerName[:]))
	}
	return names, nil
}

func deviceExtensions(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(device, "", &count, nil)); err != nil {
		return nil, fmt.Errorf("vk.EnumerateDeviceExtensionProperties(): %w", err)
	}
	props := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(device, "", &count, props)); err != nil {
		return nil, fmt.Errorf("vk.EnumerateDeviceExtensionProperties(): %w", err)
	}

	names := make([]string, 0, count)
	for _, p := range props {
		p.Deref()
		names = append(names, vk.ToString(p.ExtensionName[:]))
	}
	return names, nil
}
