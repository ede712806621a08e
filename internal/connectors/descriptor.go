package connectors

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/provider"
)

// KeyConnectorClass names the connector implementation in a descriptor.
const KeyConnectorClass = "tidewire.connector.class"

// Descriptor is a loaded connector. ShortName is the unqualified type name of
// the instance and CanonicalName is the identifier it was resolved from.
type Descriptor struct {
	ShortName     string
	CanonicalName string
	SourceLocator string
	Instance      Connector
}

func (d Descriptor) String() string {
	return "{" + d.ShortName + ":" + d.CanonicalName + ":" + d.SourceLocator + "}"
}

func (d Descriptor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("short_name", d.ShortName),
		slog.String("canonical_name", d.CanonicalName),
		slog.String("locator", d.SourceLocator),
	)
}

// LoadDescriptor reads the descriptor at loc and instantiates the connector
// it names through resolver.
func LoadDescriptor(resolver provider.Resolver[Connector], loc Locator) (Descriptor, error) {
	props, err := readProperties(loc)
	if err != nil {
		return Descriptor{}, apperr.Wrap(apperr.KindConfigLoad, loc.URL, err)
	}

	canonical := strings.TrimSpace(props[KeyConnectorClass])
	if canonical == "" {
		return Descriptor{}, apperr.New(apperr.KindMissingProviderClass, loc.URL)
	}

	instance, err := provider.Instantiate(resolver, canonical)
	if err != nil {
		return Descriptor{}, apperr.Wrap(apperr.KindInstantiation, canonical, err)
	}
	short, err := shortName(instance)
	if err != nil {
		return Descriptor{}, apperr.Wrap(apperr.KindInstantiation, canonical, err)
	}

	d := Descriptor{
		ShortName:     short,
		CanonicalName: canonical,
		SourceLocator: loc.URL,
		Instance:      instance,
	}
	slog.Info("loaded connector", "connector", d)
	return d, nil
}

func readProperties(loc Locator) (map[string]string, error) {
	rc, err := loc.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if err := checkLiteralClass(raw); err != nil {
		return nil, err
	}
	return godotenv.UnmarshalBytes(raw)
}

// checkLiteralClass rejects a class value that godotenv would expand. Only
// single-quoted values and escaped dollars are taken literally.
func checkLiteralClass(raw []byte) error {
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "export "))
		i := strings.IndexAny(line, "=:")
		if i < 0 || strings.TrimSpace(line[:i]) != KeyConnectorClass {
			continue
		}
		value := strings.TrimSpace(line[i+1:])
		if strings.HasPrefix(value, "'") {
			continue
		}
		if strings.Contains(strings.ReplaceAll(value, `\$`, ""), "$") {
			return fmt.Errorf("%s value %s must be single-quoted to contain '$'", KeyConnectorClass, value)
		}
	}
	return nil
}

func shortName(instance Connector) (string, error) {
	t := reflect.TypeOf(instance)
	if t == nil {
		return "", fmt.Errorf("factory returned a nil connector")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "", fmt.Errorf("connector type %s has no name", t)
	}
	return t.Name(), nil
}
