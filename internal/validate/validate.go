package validate

import (
	"fmt"
	"strings"

	"github.com/davoodharun/qaenv/internal/config"
)

// ValidAzureRegions is a map of valid Azure regions
var ValidAzureRegions = map[string]bool{
	"eastus":             true,
	"eastus2":            true,
	"westus":             true,
	"westus2":            true,
	"westus3":            true,
	"centralus":          true,
	"northcentralus":     true,
	"southcentralus":     true,
	"northeurope":        true,
	"westeurope":         true,
	"southeastasia":      true,
	"eastasia":           true,
	"japaneast":          true,
	"japanwest":          true,
	"australiaeast":      true,
	"australiasoutheast": true,
	"southindia":         true,
	"centralindia":       true,
	"westindia":          true,
	"canadacentral":      true,
	"canadaeast":         true,
	"uksouth":            true,
	"ukwest":             true,
	"francecentral":      true,
	"francesouth":        true,
	"germanywestcentral": true,
	"norwayeast":         true,
	"swedencentral":      true,
	"switzerlandnorth":   true,
	"uaenorth":           true,
	"brazilsouth":        true,
	"southafricanorth":   true,
}

// ValidResourceTypes lists the resource types accepted by the web app name check
var ValidResourceTypes = map[string]bool{
	"Site":                              true,
	"Slot":                              true,
	"HostingEnvironment":                true,
	"PublishingUser":                    true,
	"Microsoft.Web/sites":               true,
	"Microsoft.Web/sites/slots":         true,
	"Microsoft.Web/hostingEnvironments": true,
	"Microsoft.Web/publishingUsers":     true,
}

// ValidationError represents a validation error with context
type ValidationError struct {
	Context string
	Message string
}

func (e ValidationError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s", e.Context, e.Message)
	}
	return e.Message
}

// ValidateAzure validates the provider configuration selected by a config code.
// Missing credentials, resource group and Redis connection string are reported here too, although the
// provisioner checks them again when it reaches the corresponding step.
func ValidateAzure(code string, azure *config.Azure) []error {
	var errors []error
	context := fmt.Sprintf("Config '%s'", code)

	required := []struct{ key, value string }{
		{"client_id", azure.ClientID},
		{"client_secret", azure.ClientSecret},
		{"tenant_id", azure.TenantID},
		{"resource_group", azure.ResourceGroup},
		{"prefix", azure.Prefix},
		{"redis.connection_string", azure.Redis.ConnectionString},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			errors = append(errors, ValidationError{
				Context: context,
				Message: fmt.Sprintf("%s property must be filled", field.key),
			})
		}
	}

	if err := validatePrefix(azure.Prefix); err != nil && azure.Prefix != "" {
		errors = append(errors, ValidationError{Context: context, Message: err.Error()})
	}

	if !ValidResourceTypes[azure.ResourceType] {
		errors = append(errors, ValidationError{
			Context: context,
			Message: fmt.Sprintf("invalid resource type '%s'", azure.ResourceType),
		})
	}

	if azure.WebApp.Location != "" && !ValidAzureRegions[normalizeRegion(azure.WebApp.Location)] {
		errors = append(errors, ValidationError{
			Context: context,
			Message: fmt.Sprintf("invalid Azure region '%s'", azure.WebApp.Location),
		})
	}

	if n := len(azure.Database.Primary); n != 0 && n < 2 {
		errors = append(errors, ValidationError{
			Context: context,
			Message: "database.primary must list two connection strings",
		})
	}
	if n := len(azure.Database.Backup); n != 0 && n < 2 {
		errors = append(errors, ValidationError{
			Context: context,
			Message: "database.backup must list two connection strings",
		})
	}

	return errors
}

// normalizeRegion accepts display names such as "West Europe"
func normalizeRegion(region string) string {
	return strings.ToLower(strings.ReplaceAll(region, " ", ""))
}

// validatePrefix ensures the environment name prefix only produces valid
// web app host names once lower-cased:
// - Letters, numbers, and hyphens only
// - Must start with a letter or number
// - No consecutive hyphens
func validatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}

	name := strings.ToLower(prefix)
	firstChar := rune(name[0])
	if !((firstChar >= 'a' && firstChar <= 'z') || (firstChar >= '0' && firstChar <= '9')) {
		return fmt.Errorf("prefix must start with a letter or number")
	}

	prevHyphen := false
	for _, char := range name {
		if char == '-' {
			if prevHyphen {
				return fmt.Errorf("prefix cannot contain consecutive hyphens")
			}
			prevHyphen = true
		} else if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
			return fmt.Errorf("prefix can only contain letters, numbers, and hyphens")
		} else {
			prevHyphen = false
		}
	}

	if name[len(name)-1] == '-' {
		return fmt.Errorf("prefix cannot end with a hyphen")
	}

	return nil
}
