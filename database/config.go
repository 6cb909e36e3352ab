package database

import (
	"github.com/safing/occbase/config"
	"github.com/safing/occbase/database/storage"
)

// Configuration Keys.
const (
	CfgVersionColumnKey = "occ/columns/version"
	CfgCreatedColumnKey = "occ/columns/created"
	CfgUpdatedColumnKey = "occ/columns/updated"
	CfgTypeKey          = "database/type"
	CfgLocationKey      = "database/location"

	// DefaultType is the storage type used if none is configured.
	DefaultType = "sqlite"
)

const identifierRegex = `^[a-zA-Z_][a-zA-Z0-9_]*$`

var (
	cfgVersionColumn config.StringOption
	cfgCreatedColumn config.StringOption
	cfgUpdatedColumn config.StringOption
)

func registerConfig() error {
	for _, opt := range []*config.Option{
		{
			Name:            "Version Column",
			Key:             CfgVersionColumnKey,
			Description:     "Name of the version counter column of registered tables.",
			OptType:         config.OptTypeString,
			DefaultValue:    storage.DefaultVersionColumn,
			ValidationRegex: identifierRegex,
		},
		{
			Name:            "Created Column",
			Key:             CfgCreatedColumnKey,
			Description:     "Name of the creation time column of registered tables.",
			OptType:         config.OptTypeString,
			DefaultValue:    storage.DefaultCreatedColumn,
			ValidationRegex: identifierRegex,
		},
		{
			Name:            "Updated Column",
			Key:             CfgUpdatedColumnKey,
			Description:     "Name of the update time column of registered tables.",
			OptType:         config.OptTypeString,
			DefaultValue:    storage.DefaultUpdatedColumn,
			ValidationRegex: identifierRegex,
		},
		{
			Name:         "Storage Type",
			Key:          CfgTypeKey,
			Description:  "Storage type of the database: sqlite, bbolt, badger or hashmap.",
			OptType:      config.OptTypeString,
			DefaultValue: DefaultType,
		},
		{
			Name:         "Storage Location",
			Key:          CfgLocationKey,
			Description:  "Directory of the database. Empty keeps sqlite in memory.",
			OptType:      config.OptTypeString,
			DefaultValue: "",
		},
	} {
		if err := config.Register(opt); err != nil {
			return err
		}
	}

	cfgVersionColumn = config.GetAsString(CfgVersionColumnKey, storage.DefaultVersionColumn)
	cfgCreatedColumn = config.GetAsString(CfgCreatedColumnKey, storage.DefaultCreatedColumn)
	cfgUpdatedColumn = config.GetAsString(CfgUpdatedColumnKey, storage.DefaultUpdatedColumn)
	return nil
}

func init() {
	if err := registerConfig(); err != nil {
		panic("database: failed to register config: " + err.Error())
	}
}
