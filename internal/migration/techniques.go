// Package migration upgrades taxonomy documents from the legacy flat/string
// method format to the structured ideal format.
package migration

import "strings"

type techniqueRule struct {
	name       string
	techniques []string
}

// techniqueTable is ordered: substring matching returns the first rule that
// matches, so declaration order decides ties.
var techniqueTable = []techniqueRule{
	{"Conv-BN Fusion", []string{"fuse_layers"}},
	{"Conv-ReLU Fusion", []string{"fuse_layers"}},
	{"Graph Fusion (Conv+BN+ReLU)", []string{"fuse_layers"}},
	{"Residual Connection Fusion", []string{"fuse_layers"}},
	{"Layer Fusion", []string{"fuse_layers"}},
	{"Depthwise-Pointwise Fusion", []string{"fuse_layers"}},
	{"Inverted Residual Fusion", []string{"fuse_layers"}},
	{"Sequential Layer Fusion", []string{"fuse_layers"}},
	{"LayerNorm Fusion", []string{"fuse_layers"}},
	{"QKV Projection Fusion", []string{"fuse_layers"}},
	{"MLP Fusion", []string{"fuse_layers"}},
	{"Window Partition Fusion", []string{"fuse_layers"}},
	{"Patch Merging Fusion", []string{"fuse_layers"}},
	{"Encoder-Decoder Fusion", []string{"fuse_layers"}},
	{"Multi-scale Feature Fusion", []string{"fuse_layers"}},
	{"Skip Connection Fusion", []string{"fuse_layers"}},
	{"Upsampling Layer Fusion", []string{"fuse_layers"}},
	{"ASPP Module Fusion", []string{"fuse_layers"}},
	{"Decoder Fusion", []string{"fuse_layers"}},
	{"Skip Layer Fusion", []string{"fuse_layers"}},
	{"Multi-Modal Feature Fusion", []string{"fuse_layers"}},
	{"Conv-BN Fusion (Backbone)", []string{"fuse_layers"}},
	{"Conv-BN Fusion (Neck)", []string{"fuse_layers"}},
	{"Feature Fusion Layer Optimization", []string{"fuse_layers"}},
	{"Path Aggregation Fusion", []string{"fuse_layers"}},
	{"Conv-BN Fusion (Encoder/Decoder)", []string{"fuse_layers"}},
	{"Upsampling Fusion", []string{"fuse_layers"}},
	{"Conv-BN Fusion (Vision Encoder)", []string{"fuse_layers"}},
	{"Projection Layer Fusion", []string{"fuse_layers"}},
	{"Conv-BN Fusion (CNN Blocks)", []string{"fuse_layers"}},
	{"MBConv Fusion", []string{"fuse_layers"}},
	{"Stage Transition Fusion", []string{"fuse_layers"}},
	{"Conv-BN Fusion (MobileNet Blocks)", []string{"fuse_layers"}},
	{"Transformer-Conv Transition Fusion", []string{"fuse_layers"}},
	{"Convolutional Projection Fusion", []string{"fuse_layers"}},
	{"Hierarchical Stage Fusion", []string{"fuse_layers"}},
	{"Stem Fusion", []string{"fuse_layers"}},
	{"Layer Scale Fusion", []string{"fuse_layers"}},
	{"Inverted Bottleneck Fusion", []string{"fuse_layers"}},
	{"AdpQ (Adaptive LASSO)", []string{"quantize_int8", "weight_only"}},
	{"VLCQ (Variable-Length Coding)", []string{"quantize_int8", "weight_only"}},
	{"Hardware-Friendly PTQ", []string{"quantize_int8", "weight_only"}},
	{"Per-Channel Weight Quantization", []string{"quantize_int8", "weight_only", "per_channel"}},
	{"Weight Clustering (K-means)", []string{"quantize_int8", "weight_only"}},
	{"Codebook Quantization", []string{"quantize_int8", "weight_only"}},
	{"Per-Layer Weight Quantization", []string{"quantize_int8", "weight_only", "per_layer"}},
	{"Depthwise Conv Quantization", []string{"quantize_int8", "weight_only"}},
	{"Pointwise Conv Quantization", []string{"quantize_int8", "weight_only"}},
	{"Inverted Residual Quantization", []string{"quantize_int8", "weight_only"}},
	{"Weight-Only Quantization", []string{"quantize_int8", "weight_only"}},
	{"INT8 Weight-Only", []string{"quantize_int8", "weight_only"}},
	{"BoA (Attention-aware Hessian)", []string{"quantize_int8", "attention_aware"}},
	{"aespa (Attention-wise Reconstruction)", []string{"quantize_int8", "attention_aware"}},
	{"PTQ4ViT", []string{"quantize_int8", "attention_aware"}},
	{"APHQ-ViT", []string{"quantize_int8", "attention_aware"}},
	{"P4Q (Prompt for Quantization)", []string{"quantize_int8", "multimodal"}},
	{"Q-VLM", []string{"quantize_int8", "multimodal"}},
	{"Quantized Prompt", []string{"quantize_int8", "multimodal"}},
	{"QADS (Per-channel Scaling)", []string{"quantize_int8", "per_channel"}},
	{"Q-HyViT", []string{"quantize_int8", "hybrid"}},
	{"HyQ", []string{"quantize_int8", "hybrid"}},
	{"EfficientQuant", []string{"quantize_int8", "hybrid"}},
	{"M2-ViT", []string{"quantize_int8", "hybrid"}},
	{"Mix-QViT", []string{"quantize_int8", "hybrid"}},
	{"Hardware-Aware Quantization (HAQ)", []string{"quantize_int8", "hardware_aware"}},
	{"Channel Pruning (L1-norm)", []string{"prune_magnitude", "structured"}},
	{"Channel Pruning (BN Scale)", []string{"prune_magnitude", "structured"}},
	{"Filter Pruning (Weight Magnitude)", []string{"prune_magnitude", "structured"}},
	{"Structured Pruning (Layer-wise)", []string{"prune_magnitude", "structured"}},
	{"Structured Layer Pruning", []string{"prune_magnitude", "structured"}},
	{"Channel Pruning (Depthwise)", []string{"prune_magnitude", "structured"}},
	{"Width Multiplier Adjustment", []string{"prune_magnitude", "structured"}},
	{"Channel Pruning (Group-wise)", []string{"prune_magnitude", "structured"}},
	{"Backbone Layer Pruning", []string{"prune_magnitude", "structured"}},
	{"Attention Head Pruning", []string{"prune_magnitude", "structured"}},
	{"MLP Dimension Pruning", []string{"prune_magnitude", "structured"}},
	{"Layer Pruning (Depth Reduction)", []string{"prune_magnitude", "structured"}},
	{"Window Attention Head Pruning", []string{"prune_magnitude", "structured"}},
	{"Stage Pruning", []string{"prune_magnitude", "structured"}},
	{"ASPP Branch Pruning", []string{"prune_magnitude", "structured"}},
	{"Skip Layer Pruning", []string{"prune_magnitude", "structured"}},
	{"Vision Encoder Pruning", []string{"prune_magnitude", "structured"}},
	{"Text Encoder Pruning", []string{"prune_magnitude", "structured"}},
	{"Channel Pruning (CNN Blocks)", []string{"prune_magnitude", "structured"}},
	{"Attention Head Pruning (Transformer Blocks)", []string{"prune_magnitude", "structured"}},
	{"Block Pruning (Weight-Based)", []string{"prune_magnitude", "structured"}},
	{"Block Pruning", []string{"prune_magnitude", "structured"}},
	{"Channel Pruning", []string{"prune_magnitude", "structured"}},
	{"Path Pruning", []string{"prune_magnitude", "structured"}},
	{"Tailor (Skip Connection Optimization)", []string{"skip_connection_optimization"}},
	{"Bottleneck Restructuring", []string{"topology_optimization"}},
	{"Bottleneck Optimization", []string{"topology_optimization"}},
	{"QSI-NMS", []string{"nms_acceleration"}},
	{"eQSI-NMS", []string{"nms_acceleration"}},
	{"Detection Head Optimization", []string{"nms_acceleration"}},
	{"NMS Acceleration", []string{"nms_acceleration"}},
	{"Skip Connection Optimization (Tailor)", []string{"skip_connection_optimization"}},
	{"UNet++ Redesigned Skip Connections", []string{"skip_connection_optimization"}},
	{"Patch Merging", []string{"topology_optimization"}},
	{"Token Dimension Reduction", []string{"topology_optimization"}},
	{"Distillation Token Removal", []string{"topology_optimization"}},
	{"Reconstruction Head Removal", []string{"topology_optimization"}},
}

var techniqueIndex = buildTechniqueIndex()

func buildTechniqueIndex() map[string][]string {
	index := make(map[string][]string, len(techniqueTable))
	for _, rule := range techniqueTable {
		if _, exists := index[rule.name]; !exists {
			index[rule.name] = rule.techniques
		}
	}
	return index
}

type keywordGroup struct {
	keywords  []string
	technique string
}

var structuralKeywords = []keywordGroup{
	{[]string{"skip", "connection", "tailor"}, "skip_connection_optimization"},
	{[]string{"nms", "non-maximum", "suppression"}, "nms_acceleration"},
	{[]string{"topology", "structure", "bottleneck", "restructure"}, "topology_optimization"},
	{[]string{"decompose", "svd", "factorization"}, "decompose_svd"},
	{[]string{"token", "merge", "merging"}, "token_merging"},
}

// InferTechniques maps a free-text method name to canonical technique tags:
// exact table lookup, then case-insensitive substring match against the
// table, then keyword heuristics. It never fails; unknown names yield an
// empty slice.
func InferTechniques(methodName string) []string {
	if methodName == "" {
		return []string{}
	}

	if techniques, ok := techniqueIndex[methodName]; ok {
		return append([]string(nil), techniques...)
	}

	lower := strings.ToLower(methodName)
	for _, rule := range techniqueTable {
		key := strings.ToLower(rule.name)
		if strings.Contains(lower, key) || strings.Contains(key, lower) {
			return append([]string(nil), rule.techniques...)
		}
	}

	return inferFromKeywords(lower)
}

func inferFromKeywords(lower string) []string {
	techniques := []string{}

	if containsAny(lower, "fuse", "fusion", "merge", "combine") {
		techniques = append(techniques, "fuse_layers")
	}

	if containsAny(lower, "quant", "int8", "int4", "bit", "precision") {
		techniques = append(techniques, "quantize_int8")
		if strings.Contains(lower, "weight") {
			techniques = append(techniques, "weight_only")
		}
		if strings.Contains(lower, "channel") {
			techniques = append(techniques, "per_channel")
		}
		if strings.Contains(lower, "attention") {
			techniques = append(techniques, "attention_aware")
		}
	}

	if containsAny(lower, "prune", "sparse", "remove", "drop") {
		techniques = append(techniques, "prune_magnitude")
		if containsAny(lower, "channel", "filter", "structured", "block") {
			techniques = append(techniques, "structured")
		}
	}

	for _, group := range structuralKeywords {
		if containsAny(lower, group.keywords...) {
			techniques = append(techniques, group.technique)
		}
	}

	return techniques
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
