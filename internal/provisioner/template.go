package provisioner

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/davoodharun/qaenv/internal/config"
)

const (
	connectionStringSlots = 2
	appSettingSlots       = 3
)

// Template is a web app definition read from the project's template
// directory. The environment-specific values live at fixed positions of the
// site config arrays; Slots exposes them by name.
//
// The definition is held as an armappservice.Site, so only fields the SDK
// models are submitted. Keys it does not know (ARM template keys such as
// apiVersion or dependsOn, misspelled or newer properties) are rejected when
// the template is parsed.
type Template struct {
	Site armappservice.Site
}

// Slots are the five template entries rewritten for every environment. Only
// their values change; names and types come from the template.
type Slots struct {
	PrimaryConnString0  *armappservice.ConnStringInfo // connectionStrings[0]
	PrimaryConnString1  *armappservice.ConnStringInfo // connectionStrings[1]
	HostSetting         *armappservice.NameValuePair  // appSettings[0]
	BackupSchemaSetting *armappservice.NameValuePair  // appSettings[1]
	RedisSetting        *armappservice.NameValuePair  // appSettings[2]
}

// LoadTemplate reads and validates the web app template at path
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	return ParseTemplate(data)
}

// ParseTemplate decodes and validates a web app template
func ParseTemplate(data []byte) (*Template, error) {
	var site armappservice.Site
	if err := json.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	if err := checkFields(data, site); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	template := &Template{Site: site}
	if _, err := template.Slots(); err != nil {
		return nil, err
	}
	return template, nil
}

// Slots binds the named slots to the template's site config. It fails when
// the arrays are shorter than the slot layout requires.
func (t *Template) Slots() (*Slots, error) {
	if t.Site.Properties == nil || t.Site.Properties.SiteConfig == nil {
		return nil, fmt.Errorf("%w: properties.siteConfig is missing", ErrInvalidTemplate)
	}
	siteConfig := t.Site.Properties.SiteConfig

	if len(siteConfig.ConnectionStrings) < connectionStringSlots {
		return nil, fmt.Errorf("%w: siteConfig.connectionStrings needs %d entries, found %d",
			ErrInvalidTemplate, connectionStringSlots, len(siteConfig.ConnectionStrings))
	}
	if len(siteConfig.AppSettings) < appSettingSlots {
		return nil, fmt.Errorf("%w: siteConfig.appSettings needs %d entries, found %d",
			ErrInvalidTemplate, appSettingSlots, len(siteConfig.AppSettings))
	}
	for i, entry := range siteConfig.ConnectionStrings[:connectionStringSlots] {
		if entry == nil {
			return nil, fmt.Errorf("%w: siteConfig.connectionStrings[%d] is null", ErrInvalidTemplate, i)
		}
	}
	for i, entry := range siteConfig.AppSettings[:appSettingSlots] {
		if entry == nil {
			return nil, fmt.Errorf("%w: siteConfig.appSettings[%d] is null", ErrInvalidTemplate, i)
		}
	}

	return &Slots{
		PrimaryConnString0:  siteConfig.ConnectionStrings[0],
		PrimaryConnString1:  siteConfig.ConnectionStrings[1],
		HostSetting:         siteConfig.AppSettings[0],
		BackupSchemaSetting: siteConfig.AppSettings[1],
		RedisSetting:        siteConfig.AppSettings[2],
	}, nil
}

// Apply overlays the configured location and server farm, then merges the
// configured site config keys over the template's (configuration wins, one
// level deep).
func (t *Template) Apply(overrides config.WebApp) error {
	if overrides.Location != "" {
		t.Site.Location = to.Ptr(overrides.Location)
	}
	if t.Site.Properties == nil {
		t.Site.Properties = &armappservice.SiteProperties{}
	}
	if overrides.ServerFarmID != "" {
		t.Site.Properties.ServerFarmID = to.Ptr(overrides.ServerFarmID)
	}
	if len(overrides.SiteConfig) == 0 {
		return nil
	}

	merged := map[string]interface{}{}
	if t.Site.Properties.SiteConfig != nil {
		data, err := json.Marshal(t.Site.Properties.SiteConfig)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
		}
		if err := json.Unmarshal(data, &merged); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
		}
	}
	maps.Copy(merged, overrides.SiteConfig)

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("%w: webapp.site_config: %w", ErrConfig, err)
	}
	var siteConfig armappservice.SiteConfig
	if err := json.Unmarshal(data, &siteConfig); err != nil {
		return fmt.Errorf("%w: webapp.site_config: %w", ErrConfig, err)
	}
	if err := checkFields(data, siteConfig); err != nil {
		return fmt.Errorf("%w: webapp.site_config: %w", ErrConfig, err)
	}
	t.Site.Properties.SiteConfig = &siteConfig

	return nil
}

// checkFields fails when data holds keys that are lost once decoded into
// model, which would otherwise be dropped from the request without notice.
func checkFields(data []byte, model interface{}) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	encoded, err := json.Marshal(model)
	if err != nil {
		return err
	}
	var decoded interface{}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return err
	}

	if unknown := unknownFields(raw, decoded, ""); len(unknown) > 0 {
		return fmt.Errorf("unsupported fields: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// unknownFields lists, as dotted paths, the keys of raw missing from decoded.
// Null values are skipped since the SDK omits them too.
func unknownFields(raw, decoded interface{}, path string) []string {
	var unknown []string

	switch value := raw.(type) {
	case map[string]interface{}:
		decodedMap, _ := decoded.(map[string]interface{})
		for _, key := range slices.Sorted(maps.Keys(value)) {
			if value[key] == nil {
				continue
			}
			field := key
			if path != "" {
				field = path + "." + key
			}
			decodedValue, ok := decodedMap[key]
			if !ok {
				unknown = append(unknown, field)
				continue
			}
			unknown = append(unknown, unknownFields(value[key], decodedValue, field)...)
		}
	case []interface{}:
		decodedSlice, _ := decoded.([]interface{})
		for i := 0; i < len(value) && i < len(decodedSlice); i++ {
			unknown = append(unknown, unknownFields(value[i], decodedSlice[i], fmt.Sprintf("%s[%d]", path, i))...)
		}
	}

	return unknown
}
