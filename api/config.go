package api

import (
	"github.com/safing/occbase/config"
)

// Config Keys.
const (
	CfgListenAddressKey = "api/listenAddress"

	defaultListenAddress = "127.0.0.1:8817"
)

var listenAddressConfig config.StringOption

func registerConfig() error {
	err := config.Register(&config.Option{
		Name:            "API Address",
		Key:             CfgListenAddressKey,
		Description:     "Defines the IP address and port for the API.",
		OptType:         config.OptTypeString,
		DefaultValue:    defaultListenAddress,
		ValidationRegex: `^([0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}:[0-9]{1,5}|\[[:0-9A-Fa-f]+\]:[0-9]{1,5})$`,
	})
	if err != nil {
		return err
	}
	listenAddressConfig = config.GetAsString(CfgListenAddressKey, defaultListenAddress)

	return nil
}

func init() {
	if err := registerConfig(); err != nil {
		panic("api: failed to register config: " + err.Error())
	}
}

// ListenAddress returns the configured listen address.
func ListenAddress() string {
	return listenAddressConfig()
}
