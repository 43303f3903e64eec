// Package openapi turns OpenAPI component schemas into form field and
// validator schemas. kin-openapi types stay internal to the package.
package openapi
