// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import "strings"

// NormalizeImage fully qualifies an image reference. A reference whose
// first segment contains a dot is already registry-qualified and passes
// through unchanged; otherwise the default registry is prefixed, and the
// default namespace too when the reference has no namespace segment.
//
//	ubuntu                    -> docker.io/library/ubuntu
//	myorg/app                 -> docker.io/myorg/app
//	myregistry.example.com/app -> unchanged
func NormalizeImage(image, registry, namespace string) string {
	if image == "" {
		return image
	}
	first, _, found := strings.Cut(image, "/")
	if found && strings.Contains(first, ".") {
		return image
	}
	if !found {
		return registry + "/" + namespace + "/" + image
	}
	return registry + "/" + image
}
