package config

// mergeConfigs merges override configuration into base. Non-zero override
// values win; extension maps are merged one level deep.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	result.Placement = mergePlacement(result.Placement, override.Placement)
	result.Collections = mergeCollections(result.Collections, override.Collections)
	result.Reconcile = mergeReconcile(result.Reconcile, override.Reconcile)

	if override.Server.Listen != "" {
		result.Server.Listen = override.Server.Listen
	}
	if override.Server.PidFile != "" {
		result.Server.PidFile = override.Server.PidFile
	}

	if override.Extensions != nil {
		merged := make(map[string]interface{}, len(result.Extensions)+len(override.Extensions))
		for k, v := range result.Extensions {
			merged[k] = v
		}
		for key, value := range override.Extensions {
			if baseMap, ok := merged[key].(map[string]interface{}); ok {
				if overrideMap, ok := value.(map[string]interface{}); ok {
					m := make(map[string]interface{}, len(baseMap)+len(overrideMap))
					for k, v := range baseMap {
						m[k] = v
					}
					for k, v := range overrideMap {
						m[k] = v
					}
					merged[key] = m
					continue
				}
			}
			merged[key] = value
		}
		result.Extensions = merged
	}

	return &result
}

func mergePlacement(base, override PlacementConfig) PlacementConfig {
	result := base
	if override.FitPolicy != "" {
		result.FitPolicy = override.FitPolicy
	}
	if override.Mismatch != "" {
		result.Mismatch = override.Mismatch
	}
	if override.Label != "" {
		result.Label = override.Label
	}
	return result
}

func mergeCollections(base, override CollectionsConfig) CollectionsConfig {
	result := base
	if override.MaxOpen != 0 {
		result.MaxOpen = override.MaxOpen
	}
	if len(override.Extensions) > 0 {
		result.Extensions = override.Extensions
	}
	if len(override.Exclude) > 0 {
		result.Exclude = override.Exclude
	}
	if override.ThumbnailSize != 0 {
		result.ThumbnailSize = override.ThumbnailSize
	}
	return result
}

func mergeReconcile(base, override ReconcileConfig) ReconcileConfig {
	result := base
	if override.DocumentInterval != "" {
		result.DocumentInterval = override.DocumentInterval
	}
	if override.FolderInterval != "" {
		result.FolderInterval = override.FolderInterval
	}
	if override.Watch {
		result.Watch = true
	}
	if override.Debounce != "" {
		result.Debounce = override.Debounce
	}
	return result
}
