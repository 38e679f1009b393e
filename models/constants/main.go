package constants

/*
Defines a set of base level
constants and enums to be used
throughout the loader and its
associated services.
*/
type AssemblyId string
type StorageType string
type Workflow string

type Strategy int
type Classifier int
type Zygosity int
