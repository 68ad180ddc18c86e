package config

// DefaultCatalog is the built-in signature catalog covering every
// supported format, used when a run configuration omits an external
// catalog path. Min/max sizes are conservative defaults an examiner would
// typically override per case.
func DefaultCatalog() *CatalogDoc {
	enabled := true
	return &CatalogDoc{
		FileTypes: []FileTypeDoc{
			{
				ID: "bmp", Extension: "bmp", Validator: "bmp",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "424d"}},
				MinSize:  54, MaxSize: 200 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "wav", Extension: "wav", Validator: "wav",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "52494646"}},
				MinSize:  44, MaxSize: 2 * 1024 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "avi", Extension: "avi", Validator: "avi",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "52494646"}},
				MinSize:  44, MaxSize: 4 * 1024 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "webp", Extension: "webp", Validator: "webp",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "52494646"}},
				MinSize:  20, MaxSize: 100 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "ole", Extension: "doc", Validator: "ole",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "d0cf11e0a1b11ae1"}},
				MinSize:  512, MaxSize: 500 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "jpeg", Extension: "jpg", Validator: "jpeg",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "ffd8ff"}},
				MinSize:  128, MaxSize: 100 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "png", Extension: "png", Validator: "png",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "89504e470d0a1a0a"}},
				MinSize:  67, MaxSize: 100 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "gif", Extension: "gif", Validator: "gif",
				Patterns: []PatternDoc{
					{PatternID: 0, Hex: "474946383961"},
					{PatternID: 1, Hex: "474946383761"},
				},
				MinSize: 20, MaxSize: 100 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "tiff", Extension: "tiff", Validator: "tiff",
				Patterns: []PatternDoc{
					{PatternID: 0, Hex: "49492a00"},
					{PatternID: 1, Hex: "4d4d002a"},
				},
				MinSize: 8, MaxSize: 500 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "mp3", Extension: "mp3", Validator: "mp3",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "fffb"}, {PatternID: 1, Hex: "fff3"}, {PatternID: 2, Hex: "fff2"}},
				MinSize:  417, MaxSize: 300 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "sqlite", Extension: "sqlite", Validator: "sqlite",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "53514c69746520666f726d6174203300"}},
				MinSize:  512, MaxSize: 4 * 1024 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "zip", Extension: "zip", Validator: "zip",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "504b0304"}},
				MinSize:  22, MaxSize: 2 * 1024 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "7z", Extension: "7z", Validator: "7z",
				Patterns: []PatternDoc{{PatternID: 0, Hex: "377abcaf271c"}},
				MinSize:  32, MaxSize: 2 * 1024 * 1024 * 1024, Enabled: &enabled,
			},
			{
				ID: "rar", Extension: "rar", Validator: "rar",
				Patterns: []PatternDoc{
					{PatternID: 0, Hex: "526172211a0700"},
					{PatternID: 1, Hex: "526172211a070100"},
				},
				MinSize: 20, MaxSize: 2 * 1024 * 1024 * 1024, Enabled: &enabled,
			},
		},
	}
}
