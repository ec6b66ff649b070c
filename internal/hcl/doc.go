// Package hcl provides the concrete HCL implementation of the flow loading
// and data conversion interfaces defined in the flow package. It is
// responsible for all file parsing, HCL-to-model translation, and
// CTY-to-Go data binding.
package hcl
