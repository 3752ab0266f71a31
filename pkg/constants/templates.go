package constants

// Template names registered in the templator engine.
const (
	TemplateFetchOrUpdate  = "bootstep.fetch_or_update"
	TemplateMakeExecutable = "bootstep.make_executable"
	TemplateExecute        = "bootstep.execute"
)

// CloudLab portal parameter names.
const (
	ParameterNodeCount          = "nodeCount"
	ParameterTempFileSystemSize = "tempFileSystemSize"
)
